package messagex

import (
	"regexp"
	"strings"

	"github.com/clinia/bulkx/errorx"
)

// Topic is a topic name without its scope. Deployments sharing a broker are told apart by the scope,
// i.e. the topic "bulk-insert-changes" of the scope "staging" is named "staging.bulk-insert-changes".
type Topic string

const (
	scopeSeparator = "."
	maxTopicLength = 249
)

var legalTopicName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func NewTopic(name string) (Topic, error) {
	switch {
	case name == "":
		return "", errorx.InvalidArgumentErrorf("topic name cannot be empty")
	case strings.Contains(name, scopeSeparator):
		return "", errorx.InvalidArgumentErrorf("topic name %q cannot contain %q, it is reserved for the scope", name, scopeSeparator)
	case len(name) > maxTopicLength:
		return "", errorx.InvalidArgumentErrorf("topic name cannot be longer than %d characters", maxTopicLength)
	case !legalTopicName.MatchString(name):
		return "", errorx.InvalidArgumentErrorf("topic name %q can only contain letters, digits, '_' and '-'", name)
	}
	return Topic(name), nil
}

// TopicName returns the name of the topic in scope. An empty scope leaves the name as is.
func (t Topic) TopicName(scope string) string {
	if scope == "" {
		return string(t)
	}
	return scope + scopeSeparator + string(t)
}
