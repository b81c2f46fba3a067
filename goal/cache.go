package goal

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 512

// Cache keeps compiled templates for goal strings seen before. Provers
// usually run the same handful of goal strings with different arguments.
type Cache struct {
	templates *lru.Cache[string, *Template]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Template](size)
	if err != nil {
		return nil, err
	}
	return &Cache{templates: c}, nil
}

func (c *Cache) Compile(text string) (*Template, error) {
	if t, ok := c.templates.Get(text); ok {
		return t, nil
	}
	t, err := Compile(text)
	if err != nil {
		return nil, err
	}
	c.templates.Add(text, t)
	return t, nil
}

func (c *Cache) Len() int {
	return c.templates.Len()
}

func (c *Cache) Purge() {
	c.templates.Purge()
}
