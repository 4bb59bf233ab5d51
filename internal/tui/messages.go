package tui

import (
	"github.com/joshsymonds/coalesce/internal/model"
)

// Validation messages.
type signVerdictMsg struct {
	verdict    model.SignVerdict
	generation int
}

type selectionChangedMsg struct {
	ids []int64
}

// Merge submission messages.
type mergeResultMsg struct {
	receipt *model.MergeReceipt
	err     error
}

// Explanation messages.
type explanationMsg struct {
	explanation *model.Explanation
	err         error
}
