package telegram

import (
	"sync"
	"time"
)

const maxPixels = 18_000_000

// debounce is how long a chat may stay quiet before its photos are merged.
var debounce = 1200 * time.Millisecond

type photoBatch struct {
	ChatID       int64
	Key          string // "grp:<mediaGroupID>" | "chat:<chatID>"
	MediaGroupID string

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}

var batches sync.Map // key -> *photoBatch
