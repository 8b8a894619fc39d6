package javaproto

import (
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/javabridge"
)

// cardIDOffset is where Card's sole instance field (its int id, set by the
// constructor) lives relative to the instance base; offset 0 is the class
// pointer header every instance carries.
const cardIDOffset = 4

func init() {
	javabridge.Provide("org/kwis/msp/lcdui/Card", func(r *javabridge.Registry, c *core.Core) (*javabridge.Class, error) {
		initKey, initMethod := method("<init>", "(I)V", func(ctx *javabridge.Context, args []uint32) (uint32, error) {
			ctx.Log.Debug("Card.<init>")
			if len(args) < 2 {
				return 0, nil
			}
			this, id := args[0], args[1]
			return 0, ctx.Core.WriteU32(this+cardIDOffset, id)
		})
		fieldKey, fieldSpec := field("id", "I", cardIDOffset)
		return defineWithFields(r, c, "org/kwis/msp/lcdui/Card", "java/lang/Object",
			map[string]javabridge.FieldSpec{fieldKey: fieldSpec}, 4,
			map[string]*javabridge.Method{initKey: initMethod})
	})

	javabridge.Provide("org/kwis/msp/handset/HandsetProperty", func(r *javabridge.Registry, c *core.Core) (*javabridge.Class, error) {
		// getSystemProperty is declared static in the real WIPI API: it
		// takes no implicit `this`.
		key, m := staticMethod("getSystemProperty", "(Ljava/lang/String;)Ljava/lang/String;", func(ctx *javabridge.Context, args []uint32) (uint32, error) {
			ctx.Log.Debug("HandsetProperty.getSystemProperty")
			empty, err := ctx.NewString(nil)
			if err != nil {
				return 0, err
			}
			return empty.PtrInstance, nil
		})
		return defineWithMethods(r, c, "org/kwis/msp/handset/HandsetProperty", "java/lang/Object", map[string]*javabridge.Method{key: m})
	})
}
