package gategin

import (
	"github.com/gin-gonic/gin"
	"github.com/swimbuddz/membership-gateway/gate"
	"github.com/swimbuddz/membership-gateway/session"
	"github.com/swimbuddz/membership-gateway/tier"
)

// CurrentMember returns the member profile the Gate middleware fetched for
// this request, if any. Admin-email bypasses and anonymous traffic carry no
// profile.
func CurrentMember(c *gin.Context) (*tier.Member, bool) {
	v, ok := c.Get(ctxMemberKey)
	if !ok {
		return nil, false
	}
	m, ok := v.(*tier.Member)
	return m, ok && m != nil
}

// CurrentClaims returns the verified session claims for this request.
func CurrentClaims(c *gin.Context) (session.Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return session.Claims{}, false
	}
	cl, ok := v.(session.Claims)
	return cl, ok
}

// LastDecision returns the gate decision recorded for this request.
func LastDecision(c *gin.Context) (gate.Decision, bool) {
	v, ok := c.Get(ctxDecisionKey)
	if !ok {
		return gate.Decision{}, false
	}
	d, ok := v.(gate.Decision)
	return d, ok
}
