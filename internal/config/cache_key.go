package config

import "fmt"

type CacheKeyStruct struct {
	prefix string
}

func NewCacheKeyStruct(prefix string) *CacheKeyStruct {
	return &CacheKeyStruct{prefix: prefix}
}

// QuestionBankKey returns the cache key for the full question list.
func (r *CacheKeyStruct) QuestionBankKey() string {
	return fmt.Sprintf("%s:questions", r.prefix)
}

// ResultFeedChannel returns the PubSub channel carrying result events.
func (r *CacheKeyStruct) ResultFeedChannel() string {
	return fmt.Sprintf("%s:results:feed", r.prefix)
}

var CacheKey = NewCacheKeyStruct("quizdesk")
