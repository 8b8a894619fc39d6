package javaproto

import (
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/javabridge"
)

func init() {
	javabridge.Provide("java/lang/Object", func(r *javabridge.Registry, c *core.Core) (*javabridge.Class, error) {
		init, m := method("<init>", "()V", func(ctx *javabridge.Context, args []uint32) (uint32, error) {
			return 0, nil
		})
		return defineWithMethods(r, c, "java/lang/Object", "", map[string]*javabridge.Method{init: m})
	})

	javabridge.Provide("java/lang/String", func(r *javabridge.Registry, c *core.Core) (*javabridge.Class, error) {
		return defineWithMethods(r, c, "java/lang/String", "java/lang/Object", nil)
	})

	javabridge.Provide("java/lang/Thread", func(r *javabridge.Registry, c *core.Core) (*javabridge.Class, error) {
		methods := map[string]*javabridge.Method{}
		addMethod(methods, method("<init>", "()V", func(ctx *javabridge.Context, args []uint32) (uint32, error) {
			return 0, nil
		}))
		addMethod(methods, method("<init>", "(Ljava/lang/Runnable;)V", func(ctx *javabridge.Context, args []uint32) (uint32, error) {
			return 0, nil
		}))
		addMethod(methods, method("start", "()V", func(ctx *javabridge.Context, args []uint32) (uint32, error) {
			ctx.Log.Debug("Thread.start")
			return 0, nil
		}))
		return defineWithMethods(r, c, "java/lang/Thread", "java/lang/Object", methods)
	})

	javabridge.Provide("java/lang/Runnable", func(r *javabridge.Registry, c *core.Core) (*javabridge.Class, error) {
		return defineWithMethods(r, c, "java/lang/Runnable", "java/lang/Object", nil)
	})
}

func addMethod(into map[string]*javabridge.Method, key string, m *javabridge.Method) {
	into[key] = m
}
