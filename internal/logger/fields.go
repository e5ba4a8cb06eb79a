package logger

import (
	"time"

	"go.uber.org/zap"
)

func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }

func UserID(v string) zap.Field { return zap.String("user_id", v) }

func Channel(v string) zap.Field { return zap.String("channel", v) }

// Op names the engine operation being logged.
func Op(v string) zap.Field { return zap.String("op", v) }

// Outcome is a short result label such as "throttled" or "unknown_account".
func Outcome(v string) zap.Field { return zap.String("outcome", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func Err(err error) zap.Field { return zap.Error(err) }
