package command

import (
	"strings"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// SUBSCRIBE channel [channel ...]
//
// Each channel gets its own endpoint attached to the session. The reply
// is one subscribe confirmation frame per channel.
func cmdSubscribe(c *call) Reply {
	if c.sess == nil {
		return Error(domain.ErrInternal.WithMessage("SUBSCRIBE requires a connection"))
	}
	frames := make([]Reply, 0, len(c.args)-1)
	for _, channel := range c.args[1:] {
		ep := c.x.broker.Subscribe(channel)
		n := c.sess.Attach(ep)
		frames = append(frames, Array(Bulk("subscribe"), Bulk(channel), Integer(int64(n))))
	}
	return Multi(frames...)
}

// PUBLISH channel message [word ...]
//
// Tokens after the channel are joined with single spaces.
func cmdPublish(c *call) Reply {
	payload := strings.Join(c.args[2:], " ")
	return Integer(int64(c.x.broker.Publish(c.args[1], payload)))
}
