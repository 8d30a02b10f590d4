package command

import "sort"

// Flag describes how a command touches the keyspace.
type Flag uint8

const (
	// FlagRead runs the handler under the engine lock without persisting.
	FlagRead Flag = 1 << iota
	// FlagWrite runs the handler through Engine.Update; a non-error reply
	// marks the keyspace changed.
	FlagWrite
	// FlagNoAuth allows the command before AUTH.
	FlagNoAuth
)

// Group is the handler family a command belongs to.
type Group string

const (
	GroupConnection Group = "connection"
	GroupString     Group = "string"
	GroupNumber     Group = "number"
	GroupKeyspace   Group = "keyspace"
	GroupList       Group = "list"
	GroupSet        Group = "set"
	GroupHash       Group = "hash"
	GroupPubSub     Group = "pubsub"
)

// Command is one entry of the command table.
type Command struct {
	Name string
	// Arity counts the command name. A negative arity -N means "at least N".
	Arity int
	Flags Flag
	Group Group
	Usage string

	handler func(*call) Reply
}

// Mutating reports whether the command can change the keyspace.
func (c *Command) Mutating() bool { return c.Flags&FlagWrite != 0 }

func (c *Command) arityOK(n int) bool {
	if c.Arity >= 0 {
		return n == c.Arity
	}
	return n >= -c.Arity
}

func buildTable() map[string]*Command {
	cmds := []*Command{
		// connection
		{Name: "PING", Arity: -1, Flags: FlagNoAuth, Group: GroupConnection, Usage: "PING [message]", handler: cmdPing},
		{Name: "ECHO", Arity: 2, Group: GroupConnection, Usage: "ECHO message", handler: cmdEcho},
		{Name: "AUTH", Arity: 2, Flags: FlagNoAuth, Group: GroupConnection, Usage: "AUTH password", handler: cmdAuth},
		{Name: "QUIT", Arity: 1, Flags: FlagNoAuth, Group: GroupConnection, Usage: "QUIT", handler: cmdQuit},

		// string / number
		{Name: "SET", Arity: -3, Flags: FlagWrite, Group: GroupString, Usage: "SET key value [EX seconds]", handler: cmdSet},
		{Name: "GET", Arity: 2, Flags: FlagRead, Group: GroupString, Usage: "GET key", handler: cmdGet},
		{Name: "INCR", Arity: 2, Flags: FlagWrite, Group: GroupNumber, Usage: "INCR key", handler: cmdIncr},
		{Name: "DECR", Arity: 2, Flags: FlagWrite, Group: GroupNumber, Usage: "DECR key", handler: cmdDecr},
		{Name: "INCRBY", Arity: 3, Flags: FlagWrite, Group: GroupNumber, Usage: "INCRBY key increment", handler: cmdIncrBy},
		{Name: "DECRBY", Arity: 3, Flags: FlagWrite, Group: GroupNumber, Usage: "DECRBY key decrement", handler: cmdDecrBy},

		// keyspace
		{Name: "DEL", Arity: -2, Flags: FlagWrite, Group: GroupKeyspace, Usage: "DEL key [key ...]", handler: cmdDel},
		{Name: "EXISTS", Arity: -2, Flags: FlagRead, Group: GroupKeyspace, Usage: "EXISTS key [key ...]", handler: cmdExists},
		{Name: "KEYS", Arity: -1, Flags: FlagRead, Group: GroupKeyspace, Usage: "KEYS", handler: cmdKeys},
		{Name: "FLUSHDB", Arity: 1, Flags: FlagWrite, Group: GroupKeyspace, Usage: "FLUSHDB", handler: cmdFlushDB},
		{Name: "DBSIZE", Arity: 1, Flags: FlagRead, Group: GroupKeyspace, Usage: "DBSIZE", handler: cmdDBSize},
		{Name: "TYPE", Arity: 2, Flags: FlagRead, Group: GroupKeyspace, Usage: "TYPE key", handler: cmdType},
		{Name: "EXPIRE", Arity: 3, Flags: FlagWrite, Group: GroupKeyspace, Usage: "EXPIRE key seconds", handler: cmdExpire},
		{Name: "TTL", Arity: 2, Flags: FlagRead, Group: GroupKeyspace, Usage: "TTL key", handler: cmdTTL},
		{Name: "PERSIST", Arity: 2, Flags: FlagWrite, Group: GroupKeyspace, Usage: "PERSIST key", handler: cmdPersist},

		// list
		{Name: "LPUSH", Arity: -3, Flags: FlagWrite, Group: GroupList, Usage: "LPUSH key value [value ...]", handler: cmdLPush},
		{Name: "RPUSH", Arity: -3, Flags: FlagWrite, Group: GroupList, Usage: "RPUSH key value [value ...]", handler: cmdRPush},
		{Name: "LPOP", Arity: 2, Flags: FlagWrite, Group: GroupList, Usage: "LPOP key", handler: cmdLPop},
		{Name: "RPOP", Arity: 2, Flags: FlagWrite, Group: GroupList, Usage: "RPOP key", handler: cmdRPop},
		{Name: "LLEN", Arity: 2, Flags: FlagRead, Group: GroupList, Usage: "LLEN key", handler: cmdLLen},
		{Name: "LINDEX", Arity: 3, Flags: FlagRead, Group: GroupList, Usage: "LINDEX key index", handler: cmdLIndex},
		{Name: "LSET", Arity: 4, Flags: FlagWrite, Group: GroupList, Usage: "LSET key index value", handler: cmdLSet},
		{Name: "LRANGE", Arity: 4, Flags: FlagRead, Group: GroupList, Usage: "LRANGE key start stop", handler: cmdLRange},

		// set
		{Name: "SADD", Arity: -3, Flags: FlagWrite, Group: GroupSet, Usage: "SADD key member [member ...]", handler: cmdSAdd},
		{Name: "SREM", Arity: -3, Flags: FlagWrite, Group: GroupSet, Usage: "SREM key member [member ...]", handler: cmdSRem},
		{Name: "SMEMBERS", Arity: 2, Flags: FlagRead, Group: GroupSet, Usage: "SMEMBERS key", handler: cmdSMembers},
		{Name: "SISMEMBER", Arity: 3, Flags: FlagRead, Group: GroupSet, Usage: "SISMEMBER key member", handler: cmdSIsMember},
		{Name: "SCARD", Arity: 2, Flags: FlagRead, Group: GroupSet, Usage: "SCARD key", handler: cmdSCard},

		// hash
		{Name: "HSET", Arity: -4, Flags: FlagWrite, Group: GroupHash, Usage: "HSET key field value [field value ...]", handler: cmdHSet},
		{Name: "HGET", Arity: 3, Flags: FlagRead, Group: GroupHash, Usage: "HGET key field", handler: cmdHGet},
		{Name: "HDEL", Arity: -3, Flags: FlagWrite, Group: GroupHash, Usage: "HDEL key field [field ...]", handler: cmdHDel},
		{Name: "HKEYS", Arity: 2, Flags: FlagRead, Group: GroupHash, Usage: "HKEYS key", handler: cmdHKeys},
		{Name: "HVALS", Arity: 2, Flags: FlagRead, Group: GroupHash, Usage: "HVALS key", handler: cmdHVals},
		{Name: "HLEN", Arity: 2, Flags: FlagRead, Group: GroupHash, Usage: "HLEN key", handler: cmdHLen},
		{Name: "HGETALL", Arity: 2, Flags: FlagRead, Group: GroupHash, Usage: "HGETALL key", handler: cmdHGetAll},
		{Name: "HEXISTS", Arity: 3, Flags: FlagRead, Group: GroupHash, Usage: "HEXISTS key field", handler: cmdHExists},

		// pubsub
		{Name: "SUBSCRIBE", Arity: -2, Group: GroupPubSub, Usage: "SUBSCRIBE channel [channel ...]", handler: cmdSubscribe},
		{Name: "PUBLISH", Arity: -3, Group: GroupPubSub, Usage: "PUBLISH channel message [word ...]", handler: cmdPublish},
	}

	table := make(map[string]*Command, len(cmds))
	for _, c := range cmds {
		table[c.Name] = c
	}
	return table
}

// Catalog returns every command sorted by name. Clients use it for help
// and completion.
func Catalog() []*Command {
	return sortedCommands(buildTable())
}

func sortedCommands(table map[string]*Command) []*Command {
	out := make([]*Command, 0, len(table))
	for _, c := range table {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
