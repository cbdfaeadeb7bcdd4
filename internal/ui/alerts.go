package ui

import (
	"sync"
)

// Alert is one failure waiting to be acknowledged by the operator.
type Alert struct {
	Op      string
	Message string
}

// AlertQueue collects controller failures for the TUI. It implements
// controller.Notifier and is safe for concurrent use, since operations run
// inside tea.Cmd goroutines.
type AlertQueue struct {
	mu     sync.Mutex
	alerts []Alert
}

func (q *AlertQueue) Notify(op string, err error) {
	if err == nil {
		return
	}
	q.mu.Lock()
	q.alerts = append(q.alerts, Alert{Op: op, Message: err.Error()})
	q.mu.Unlock()
}

// Peek returns the oldest pending alert without removing it.
func (q *AlertQueue) Peek() (Alert, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.alerts) == 0 {
		return Alert{}, false
	}
	return q.alerts[0], true
}

// Pop acknowledges the oldest alert.
func (q *AlertQueue) Pop() (Alert, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.alerts) == 0 {
		return Alert{}, false
	}
	a := q.alerts[0]
	q.alerts = q.alerts[1:]
	return a, true
}

func (q *AlertQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.alerts)
}
