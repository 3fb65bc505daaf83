// Package imitate implements the imitation bot: it learns an order-1 word
// Markov chain per user from messages it observes and generates text in their
// style on request.
package imitate

import (
	"strings"
)

const (
	// maxFollowers bounds the follower list per word so one chatty user
	// cannot grow the save file without limit.
	maxFollowers = 64
	maxWords     = 40
)

// Chain is an order-1 word Markov model. Keys are lowercase words; values are
// observed followers in arrival order (duplicates kept, they are the weights).
type Chain struct {
	Starts    []string            `json:"starts"`
	Followers map[string][]string `json:"followers"`
}

// NewChain returns an empty model.
func NewChain() *Chain {
	return &Chain{Followers: make(map[string][]string)}
}

// Observe feeds one message into the model.
func (c *Chain) Observe(text string) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return
	}
	if len(c.Starts) < maxFollowers {
		c.Starts = append(c.Starts, words[0])
	}
	for i := 0; i < len(words)-1; i++ {
		followers := c.Followers[words[i]]
		if len(followers) >= maxFollowers {
			continue
		}
		c.Followers[words[i]] = append(followers, words[i+1])
	}
}

// Generate walks the chain from a random start until a dead end or the word
// cap. intn is the caller's random source.
func (c *Chain) Generate(intn func(n int) int) string {
	if len(c.Starts) == 0 {
		return ""
	}
	word := c.Starts[intn(len(c.Starts))]
	words := []string{word}
	for len(words) < maxWords {
		followers := c.Followers[word]
		if len(followers) == 0 {
			break
		}
		word = followers[intn(len(followers))]
		words = append(words, word)
	}
	return strings.Join(words, " ")
}

// Empty reports whether the model has seen anything.
func (c *Chain) Empty() bool {
	return len(c.Starts) == 0
}

func (c *Chain) clone() *Chain {
	out := &Chain{
		Starts:    append([]string(nil), c.Starts...),
		Followers: make(map[string][]string, len(c.Followers)),
	}
	for word, followers := range c.Followers {
		out.Followers[word] = append([]string(nil), followers...)
	}
	return out
}
