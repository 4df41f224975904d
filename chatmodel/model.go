// Package chatmodel defines the shared contracts between agents, tools and
// the chat context carried through context.Context.
package chatmodel

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

var (
	// ErrFailedUnmarshalInput is returned by a tool when the model supplied
	// arguments that do not match the tool's input schema.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
)

// ContentProvider is implemented by values that can render themselves as the
// textual content of a transcript turn.
type ContentProvider interface {
	GetContent() string
}

type Stringer interface {
	String() string
}

func Stringify(s any) string {
	if v, ok := s.(Stringer); ok {
		return v.String()
	}
	if v, ok := s.(ContentProvider); ok {
		return v.GetContent()
	}
	bs, _ := json.Marshal(s)
	return string(bs)
}

// FewShotExample is a prompt/completion pair injected after the system
// prompt to steer the model.
type FewShotExample struct {
	Prompt     string
	Completion string
}

type FewShotExamples []FewShotExample
