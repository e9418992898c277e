package ui

import "github.com/lepinkainen/equirender/queue"

// TUI Message Types for render queue communication
type QueueStartedMsg struct{}

type EntryStartedMsg struct {
	Entry *queue.Entry
}

type EntryProgressMsg struct {
	Entry   *queue.Entry
	Percent float64 // 0 to 100
}

type EntryFinishedMsg struct {
	Entry *queue.Entry
	State queue.State
	Error error
}

type QueueFinishedMsg struct{}
