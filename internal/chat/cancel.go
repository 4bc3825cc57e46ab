// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager guards the cancel function of the in-flight send so
// Stop can fire from any goroutine. Always hold it by pointer.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// begin derives a cancellable context from parent and stores its cancel
// function, replacing any leftover from a previous send.
func (cm *cancelManager) begin(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.cancelFunc = cancel
	return ctx
}

// stop invokes the stored cancel function and clears it. Returns false
// when nothing was in flight; safe to call repeatedly.
func (cm *cancelManager) stop() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc == nil {
		return false
	}
	cm.cancelFunc()
	cm.cancelFunc = nil
	return true
}

// clear cancels the context (if present) and removes the cancel
// function, so finished sends never leak their context.
func (cm *cancelManager) clear() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}
