package event

import "github.com/stretchr/testify/mock"

// MatchDeadLetter creates a custom matcher for dead letter arguments in mocks
func MatchDeadLetter(matcher func(DeadLetterEntry) bool) interface{} {
	return mock.MatchedBy(matcher)
}
