package command

import (
	"strings"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// SET key value [EX seconds]
func cmdSet(c *call) Reply {
	key, value := c.args[1], c.args[2]

	var ttl time.Duration
	opts := c.args[3:]
	for i := 0; i < len(opts); i++ {
		switch strings.ToUpper(opts[i]) {
		case "EX":
			if i+1 >= len(opts) {
				return Error(domain.ErrSyntax)
			}
			d, err := parseTTL(opts[i+1])
			if err != nil {
				return Error(err)
			}
			if d == 0 {
				return Error(domain.ErrSyntax.WithMessage("invalid expire time in 'set' command"))
			}
			ttl = d
			i++
		default:
			return Error(domain.ErrSyntax)
		}
	}

	if ttl > 0 {
		c.store.SetWithTTL(key, value, ttl)
	} else {
		c.store.Set(key, value)
	}
	return okReply
}

func cmdGet(c *call) Reply {
	return OptionalBulk(c.store.Get(c.args[1]))
}

func incrReply(c *call, delta int64) Reply {
	n, err := c.store.IncrBy(c.args[1], delta)
	if err != nil {
		return Error(err)
	}
	return Integer(n)
}

func cmdIncr(c *call) Reply { return incrReply(c, 1) }
func cmdDecr(c *call) Reply { return incrReply(c, -1) }

func cmdIncrBy(c *call) Reply {
	delta, err := parseInt(c.args[2])
	if err != nil {
		return Error(err)
	}
	return incrReply(c, delta)
}

func cmdDecrBy(c *call) Reply {
	delta, err := parseInt(c.args[2])
	if err != nil {
		return Error(err)
	}
	if delta == -delta && delta != 0 {
		// math.MinInt64 cannot be negated.
		return Error(domain.ErrNotInteger)
	}
	return incrReply(c, -delta)
}

func cmdDel(c *call) Reply {
	return Integer(int64(c.store.Delete(c.args[1:]...)))
}

func cmdExists(c *call) Reply {
	return Integer(int64(c.store.Exists(c.args[1:]...)))
}

// KEYS [pattern]
func cmdKeys(c *call) Reply {
	if len(c.args) > 2 {
		return Error(domain.ArityError("keys"))
	}
	keys := c.store.Keys()
	if len(c.args) == 1 || c.args[1] == "*" {
		return BulkArray(keys)
	}

	pattern := c.args[1]
	matched := keys[:0]
	for _, k := range keys {
		if matchGlob(pattern, k) {
			matched = append(matched, k)
		}
	}
	return BulkArray(matched)
}

func cmdFlushDB(c *call) Reply {
	c.store.FlushDB()
	return okReply
}

func cmdDBSize(c *call) Reply {
	return Integer(int64(c.store.Len()))
}

func cmdType(c *call) Reply {
	return Status(c.store.Type(c.args[1]).String())
}

func cmdExpire(c *call) Reply {
	ttl, err := parseTTL(c.args[2])
	if err != nil {
		return Error(err)
	}
	return Bool(c.store.Expire(c.args[1], ttl))
}

func cmdTTL(c *call) Reply {
	return Integer(c.store.TTL(c.args[1]))
}

func cmdPersist(c *call) Reply {
	return Bool(c.store.Persist(c.args[1]))
}
