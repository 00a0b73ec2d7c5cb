// Package ctxkeys 集中定义请求作用域内的 context 键，避免各包之间的键冲突。
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	callerKey    contextKey = "caller_id"
)

// WithRequestID 设置请求 ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID 获取请求 ID
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithCaller 记录发起请求的用户或参与者 ID
func WithCaller(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerKey, id)
}

// Caller 获取发起请求的用户或参与者 ID
func Caller(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(callerKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
