// Package journal defines the plaintext content forms of journal data and
// their byte serialization. Content values only ever exist in memory on the
// client: they are encoded here, sealed by cryptox, and cross every remote
// boundary as ciphertext.
package journal

import (
	"encoding/json"
	"strings"
	"time"
)

// EntryContent is the decrypted payload of one journal entry.
type EntryContent struct {
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	CoachPromptID string    `json:"coachPromptId,omitempty"`
}

// GoalContent is the decrypted payload of a goal record.
type GoalContent struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Priority    int        `json:"priority"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// DraftSnapshot is an unsynced local edit for one date. It is superseded by
// a successful remote save and cleared on flush.
type DraftSnapshot struct {
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EncodeEntryContent serializes entry content to its plaintext byte form.
func EncodeEntryContent(c EntryContent) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeEntryContent parses the plaintext byte form of an entry.
func DecodeEntryContent(b []byte) (EntryContent, error) {
	var c EntryContent
	err := json.Unmarshal(b, &c)
	return c, err
}

// EncodeGoalContent serializes goal content to its plaintext byte form.
func EncodeGoalContent(c GoalContent) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeGoalContent parses the plaintext byte form of a goal.
func DecodeGoalContent(b []byte) (GoalContent, error) {
	var c GoalContent
	err := json.Unmarshal(b, &c)
	return c, err
}

// EncodeDraft serializes a draft snapshot.
func EncodeDraft(d DraftSnapshot) ([]byte, error) {
	return json.Marshal(d)
}

// DecodeDraft parses a draft snapshot.
func DecodeDraft(b []byte) (DraftSnapshot, error) {
	var d DraftSnapshot
	err := json.Unmarshal(b, &d)
	return d, err
}

// WordCount counts whitespace-delimited tokens in an entry body. Stored as
// plaintext metadata so calendar views can render without decryption.
func WordCount(body string) int {
	return len(strings.Fields(body))
}
