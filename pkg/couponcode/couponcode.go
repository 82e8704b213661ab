// Package couponcode generates coupon codes for redeemed points.
//
// Codes come from a snowflake node: millisecond timestamp, node id and a per-millisecond
// sequence. Two connector instances must run with different REDEMPTION.NODE_ID values;
// the coupon table keeps a unique index on the code as the last line of defence.
package couponcode

import (
	"strings"

	"loyalty-connector/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("couponcode",
	fx.Provide(Provide),
)

type Generator interface {
	// Code returns a new coupon code.
	Code() string
	// ID returns a new numeric id for the coupon row.
	ID() int64
}

type SnowflakeGenerator struct {
	node   *snowflake.Node
	prefix string
}

func Provide(cfg *config.Config) (Generator, error) {
	return New(cfg.Redemption.NodeID, cfg.Redemption.CouponPrefix)
}

func New(nodeID int64, prefix string) (*SnowflakeGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		zap.L().Error("failed to init snowflake node", zap.Int64("node_id", nodeID), zap.Error(err))
		return nil, err
	}
	return &SnowflakeGenerator{node: node, prefix: strings.ToUpper(strings.TrimSpace(prefix))}, nil
}

func (g *SnowflakeGenerator) Code() string {
	code := strings.ToUpper(g.node.Generate().Base36())
	if g.prefix == "" {
		return code
	}
	return g.prefix + "-" + code
}

func (g *SnowflakeGenerator) ID() int64 {
	return g.node.Generate().Int64()
}
