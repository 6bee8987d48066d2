package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugKeyType struct{}

// debugKeyField tags every debug-mode entry with the key that enabled it so a
// single run can be grepped out of a shared log.
const debugKeyField = "debug_key"

// WithDebugKey returns a context under which CDebugf and CDebugw fire on any
// logger, whatever its level. An empty key is replaced by a random one.
func WithDebugKey(ctx context.Context, key string) context.Context {
	if key == "" {
		key = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugKeyType{}, key)
}

// DebugKey returns the key attached by WithDebugKey, or "" when ctx is not in
// debug mode.
func DebugKey(ctx context.Context) string {
	key, _ := ctx.Value(debugKeyType{}).(string)
	return key
}
