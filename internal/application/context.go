package application

import "context"

type evaluationIDKey struct{}

// ContextWithEvaluationID makes Evaluate record its evaluation under id
// instead of a random one. Callers that may repeat a request, such as a
// retried activity, pass a stable id so the repeat is stored only once.
func ContextWithEvaluationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, evaluationIDKey{}, id)
}

// EvaluationIDFromContext returns the id set by ContextWithEvaluationID
func EvaluationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(evaluationIDKey{}).(string)
	return id
}
