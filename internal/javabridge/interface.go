package javabridge

import (
	"github.com/mirusu400/wie/internal/cbridge"
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/marshal"
)

// interfaceWordCount is sizeof(WIPIJBInterface)/4: a reserved slot followed
// by the twelve bridge function pointers apps read out of it.
const interfaceWordCount = 13

// Install builds the guest-resident Java bridge interface struct: one word
// per bridge entry point, each wired to a trampoline that runs the
// corresponding Context method. It returns the struct's address, which is
// what apps are handed as "the" Java interface pointer.
func Install(ctx *Context) (uint32, error) {
	fns := make([]func(*core.Core), interfaceWordCount)

	fns[1] = marshal.Adapt2(func(_ *core.Core, arg1, address uint32) uint32 {
		ret, err := ctx.JavaJump1(arg1, address)
		if err != nil {
			return 0
		}
		return ret
	}, marshal.Word, marshal.Word)

	fns[2] = marshal.Adapt3(func(_ *core.Core, arg1, arg2, address uint32) uint32 {
		ret, err := ctx.JavaJump2(arg1, arg2, address)
		if err != nil {
			return 0
		}
		return ret
	}, marshal.Word, marshal.Word, marshal.Word)

	fns[3] = marshal.Adapt4(func(_ *core.Core, arg1, arg2, arg3, address uint32) uint32 {
		ret, err := ctx.JavaJump3(arg1, arg2, arg3, address)
		if err != nil {
			return 0
		}
		return ret
	}, marshal.Word, marshal.Word, marshal.Word, marshal.Word)

	fns[4] = marshal.Adapt2(func(_ *core.Core, ptrClass, ptrFullName uint32) uint32 {
		ret, err := ctx.GetJavaMethod(ptrClass, ptrFullName)
		if err != nil {
			ctx.Log.Debug("get_java_method failed")
			return 0
		}
		return ret
	}, marshal.Word, marshal.Word)

	fns[5] = marshal.Adapt2(func(_ *core.Core, ptrClass, ptrFieldName uint32) uint32 {
		ret, err := ctx.GetStaticField(ptrClass, ptrFieldName)
		if err != nil {
			ctx.Log.Debug("get_static_field failed")
			return 0
		}
		return ret
	}, marshal.Word, marshal.Word)

	fns[6] = marshal.Adapt4(func(_ *core.Core, ptrInstance, ptrFullName, ptrArgs, argCount uint32) uint32 {
		ret, err := ctx.CallMethod(ptrInstance, ptrFullName, ptrArgs, argCount)
		if err != nil {
			ctx.Log.Debug("call_method failed")
			return 0
		}
		return ret
	}, marshal.Word, marshal.Word, marshal.Word, marshal.Word)

	fns[7] = marshal.Adapt4(func(_ *core.Core, ptrClass, ptrFullName, ptrArgs, argCount uint32) uint32 {
		ret, err := ctx.CallStaticMethod(ptrClass, ptrFullName, ptrArgs, argCount)
		if err != nil {
			ctx.Log.Debug("call_static_method failed")
			return 0
		}
		return ret
	}, marshal.Word, marshal.Word, marshal.Word, marshal.Word)

	fns[8] = marshal.Adapt1(func(_ *core.Core, _ uint32) uint32 { return 0 }, marshal.Word)
	fns[9] = marshal.Adapt1(func(_ *core.Core, _ uint32) uint32 { return 0 }, marshal.Word)

	fns[10] = marshal.Adapt1(func(_ *core.Core, ptrClass uint32) uint32 {
		if err := ctx.RegisterClass(ptrClass); err != nil {
			ctx.Log.Debug("register_class failed")
		}
		return 0
	}, marshal.Word)

	fns[11] = marshal.Adapt2(func(_ *core.Core, offset, length uint32) uint32 {
		ret, err := ctx.RegisterJavaString(offset, length)
		if err != nil {
			return 0
		}
		return ret
	}, marshal.Word, marshal.Word)

	fns[12] = marshal.Adapt2(func(_ *core.Core, address, ptrData uint32) uint32 {
		ret, err := ctx.CallNative(address, ptrData)
		if err != nil {
			return 0
		}
		return ret
	}, marshal.Word, marshal.Word)

	base, err := ctx.Core.Malloc(interfaceWordCount * 4)
	if err != nil {
		return 0, err
	}

	words := make([]uint32, interfaceWordCount)
	for i, fn := range fns {
		if fn == nil {
			continue
		}
		addr, err := ctx.Core.RegisterFunction(fn)
		if err != nil {
			return 0, err
		}
		words[i] = addr
	}

	if err := cbridge.WriteWordSlice(ctx.Core, base, words); err != nil {
		return 0, err
	}

	return base, nil
}
