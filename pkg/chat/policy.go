package chat

import (
	"fmt"
	"strings"
)

// BusyPolicy decides what Submit does while a reply is being composed.
type BusyPolicy string

const (
	// BusyBlock rejects submissions until the pending reply lands.
	BusyBlock BusyPolicy = "block"
	// BusyQueue holds submissions and replays them in order once the session is idle.
	BusyQueue BusyPolicy = "queue"
)

// ClearPolicy decides what Clear does with a reply that is still pending.
type ClearPolicy string

const (
	// ClearDeliver keeps the pending reply; it is appended to the emptied transcript.
	ClearDeliver ClearPolicy = "deliver"
	// ClearCancel drops the pending reply and any queued submissions.
	ClearCancel ClearPolicy = "cancel"
)

func ParseBusyPolicy(s string) (BusyPolicy, error) {
	switch p := BusyPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return BusyBlock, nil
	case BusyBlock, BusyQueue:
		return p, nil
	default:
		return "", fmt.Errorf("unknown busy policy %q (want block or queue)", s)
	}
}

func ParseClearPolicy(s string) (ClearPolicy, error) {
	switch p := ClearPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ClearDeliver, nil
	case ClearDeliver, ClearCancel:
		return p, nil
	default:
		return "", fmt.Errorf("unknown clear policy %q (want deliver or cancel)", s)
	}
}

// Outcome reports what Submit did with its input.
type Outcome int

const (
	OutcomeAppended Outcome = iota
	OutcomeQueued
	OutcomeIgnoredEmpty
	OutcomeRejectedBusy
	OutcomeClosed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAppended:
		return "appended"
	case OutcomeQueued:
		return "queued"
	case OutcomeIgnoredEmpty:
		return "ignored-empty"
	case OutcomeRejectedBusy:
		return "rejected-busy"
	case OutcomeClosed:
		return "closed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Accepted reports whether the text entered the session, now or later.
func (o Outcome) Accepted() bool {
	return o == OutcomeAppended || o == OutcomeQueued
}
