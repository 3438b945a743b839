package cache

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

type patternCache struct {
	compiled *lru.Cache[string, *regexp.Regexp]
}

func newPatternCache(size int) *patternCache {
	compiled, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		// only fails for size <= 0
		panic(err)
	}
	return &patternCache{compiled: compiled}
}

func (p *patternCache) compile(expr string) (*regexp.Regexp, error) {
	if re, ok := p.compiled.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	p.compiled.Add(expr, re)
	return re, nil
}
