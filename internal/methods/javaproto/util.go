package javaproto

import (
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/javabridge"
)

func init() {
	javabridge.Provide("java/util/Vector", func(r *javabridge.Registry, c *core.Core) (*javabridge.Class, error) {
		initKey, initMethod := method("<init>", "()V", func(ctx *javabridge.Context, args []uint32) (uint32, error) {
			ctx.Log.Debug("Vector.<init>")
			return 0, nil
		})
		return defineWithMethods(r, c, "java/util/Vector", "java/lang/Object", map[string]*javabridge.Method{initKey: initMethod})
	})
}
