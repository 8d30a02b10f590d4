package command

import (
	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

func cmdPing(c *call) Reply {
	switch len(c.args) {
	case 1:
		return pongReply
	case 2:
		return Bulk(c.args[1])
	default:
		return Error(domain.ArityError("ping"))
	}
}

func cmdEcho(c *call) Reply {
	return Bulk(c.args[1])
}

func cmdAuth(c *call) Reply {
	if !c.x.RequiresAuth() {
		return Error(domain.ErrSyntax.WithMessage("AUTH called without any password configured"))
	}
	if c.sess == nil {
		return Error(domain.ErrInternal.WithMessage("AUTH requires a connection"))
	}
	if !c.x.checkPassword(c.args[1]) {
		c.x.logger.Warn("authentication failed")
		c.sess.SetAuthenticated(false)
		return Error(domain.ErrInvalidPassword)
	}
	c.sess.SetAuthenticated(true)
	return okReply
}

func cmdQuit(c *call) Reply {
	if c.sess != nil {
		c.sess.Quit()
	}
	return okReply
}
