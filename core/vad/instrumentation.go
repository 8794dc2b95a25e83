package vad

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/lovrenc-k/voxloop/core/vad"

var logger = otelslog.NewLogger(scopeName)
