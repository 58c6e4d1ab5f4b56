//go:build tools

// Package tools pins the code generators used by go generate
// (mockgen for mocks/) so go.mod and go.sum track them.
package pairchat

import (
	_ "go.uber.org/mock/mockgen"
)
