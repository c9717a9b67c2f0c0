package common

const (
	RedisStreamSchedulerTaskExecution = "schedule.task.execution"
	RedisStreamOutcomeEvaluate        = "outcome.evaluate"

	RedisStreamGroup    = "engine-group"
	RedisStreamConsumer = "engine-consumer"
)
