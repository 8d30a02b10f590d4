package command

import (
	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
)

// ============================================================================
// List
// ============================================================================

func cmdLPush(c *call) Reply {
	n, err := c.store.LPush(c.args[1], c.args[2:]...)
	if err != nil {
		return Error(err)
	}
	return Integer(int64(n))
}

func cmdRPush(c *call) Reply {
	n, err := c.store.RPush(c.args[1], c.args[2:]...)
	if err != nil {
		return Error(err)
	}
	return Integer(int64(n))
}

func cmdLPop(c *call) Reply { return OptionalBulk(c.store.LPop(c.args[1])) }
func cmdRPop(c *call) Reply { return OptionalBulk(c.store.RPop(c.args[1])) }

func cmdLLen(c *call) Reply { return Integer(int64(c.store.LLen(c.args[1]))) }

func cmdLIndex(c *call) Reply {
	idx, err := parseInt(c.args[2])
	if err != nil {
		return Error(err)
	}
	return OptionalBulk(c.store.LIndex(c.args[1], idx))
}

func cmdLSet(c *call) Reply {
	idx, err := parseInt(c.args[2])
	if err != nil {
		return Error(err)
	}
	if err := c.store.LSet(c.args[1], idx, c.args[3]); err != nil {
		return Error(err)
	}
	return okReply
}

func cmdLRange(c *call) Reply {
	start, err := parseInt(c.args[2])
	if err != nil {
		return Error(err)
	}
	end, err := parseInt(c.args[3])
	if err != nil {
		return Error(err)
	}
	return BulkArray(c.store.LRange(c.args[1], start, end))
}

// ============================================================================
// Set
// ============================================================================

func cmdSAdd(c *call) Reply {
	n, err := c.store.SAdd(c.args[1], c.args[2:]...)
	if err != nil {
		return Error(err)
	}
	return Integer(int64(n))
}

func cmdSRem(c *call) Reply {
	return Integer(int64(c.store.SRem(c.args[1], c.args[2:]...)))
}

func cmdSMembers(c *call) Reply { return BulkArray(c.store.SMembers(c.args[1])) }

func cmdSIsMember(c *call) Reply {
	return Bool(c.store.SIsMember(c.args[1], c.args[2]))
}

func cmdSCard(c *call) Reply { return Integer(int64(c.store.SCard(c.args[1]))) }

// ============================================================================
// Hash
// ============================================================================

// HSET key field value [field value ...]
func cmdHSet(c *call) Reply {
	rest := c.args[2:]
	if len(rest)%2 != 0 {
		return Error(domain.ArityError("hset"))
	}
	pairs := make([]memory.FieldValue, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		pairs = append(pairs, memory.FieldValue{Field: rest[i], Value: rest[i+1]})
	}
	n, err := c.store.HSet(c.args[1], pairs...)
	if err != nil {
		return Error(err)
	}
	return Integer(int64(n))
}

func cmdHGet(c *call) Reply {
	return OptionalBulk(c.store.HGet(c.args[1], c.args[2]))
}

func cmdHDel(c *call) Reply {
	return Integer(int64(c.store.HDel(c.args[1], c.args[2:]...)))
}

func cmdHKeys(c *call) Reply { return BulkArray(c.store.HKeys(c.args[1])) }
func cmdHVals(c *call) Reply { return BulkArray(c.store.HVals(c.args[1])) }
func cmdHLen(c *call) Reply  { return Integer(int64(c.store.HLen(c.args[1]))) }

// HGETALL replies field1 value1 field2 value2 ... ordered by field.
func cmdHGetAll(c *call) Reply {
	fields := c.store.HGetAll(c.args[1])
	items := make([]Reply, 0, len(fields)*2)
	for _, fv := range fields {
		items = append(items, Bulk(fv.Field), Bulk(fv.Value))
	}
	return Array(items...)
}

func cmdHExists(c *call) Reply {
	return Bool(c.store.HExists(c.args[1], c.args[2]))
}
