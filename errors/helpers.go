package errors

// WrapOpComponent wraps err with a consistent Op and Component.
// If err is nil, returns nil.
func WrapOpComponent(err error, op Operation, component string) error {
	if err == nil {
		return nil
	}
	return E(op, Component(component), err)
}

// WrapStage wraps err with a pipeline stage and code, keeping the retryable flag of the cause.
// If err is nil, returns nil.
func WrapStage(err error, stage Stage, op Operation, code ErrorCode) error {
	if err == nil {
		return nil
	}
	return NewStageError(stage, op, code, err)
}
