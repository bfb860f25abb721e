package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// HostModule is the import module adapters use to talk back to the bridge.
const HostModule = "honeycomb"

type envKey struct{}

func withEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

func envFrom(ctx context.Context) *Env {
	env, _ := ctx.Value(envKey{}).(*Env)
	return env
}

// instantiateHost registers the honeycomb host module:
//
//	throw(obj i32)
//	throw_message(cls_ptr, cls_len, msg_ptr, msg_len i32)
//	log(level, ptr, len i32)
func (vm *VM) instantiateHost(ctx context.Context, r wazero.Runtime) error {
	i32 := api.ValueTypeI32
	_, err := r.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(vm.hostThrow), []api.ValueType{i32}, nil).
		WithParameterNames("obj").
		Export("throw").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(vm.hostThrowMessage), []api.ValueType{i32, i32, i32, i32}, nil).
		WithParameterNames("cls_ptr", "cls_len", "msg_ptr", "msg_len").
		Export("throw_message").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(vm.hostLog), []api.ValueType{i32, i32, i32}, nil).
		WithParameterNames("level", "ptr", "len").
		Export("log").
		Instantiate(ctx)
	return err
}

func (vm *VM) hostThrow(ctx context.Context, mod api.Module, stack []uint64) {
	env := envFrom(ctx)
	if env == nil {
		vm.logger.Warn("throw outside of an attached call", zap.Uint32("obj", api.DecodeU32(stack[0])))
		return
	}
	env.raise(&Exception{
		Object: Object(api.DecodeU32(stack[0])),
		module: vm.moduleIndex(mod),
	})
}

func (vm *VM) hostThrowMessage(ctx context.Context, mod api.Module, stack []uint64) {
	cls := readGuestString(mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	msg := readGuestString(mod, api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
	env := envFrom(ctx)
	if env == nil {
		vm.logger.Warn("throw outside of an attached call", zap.String("class", cls), zap.String("message", msg))
		return
	}
	env.raise(&Exception{Class: cls, Message: msg, module: vm.moduleIndex(mod)})
}

func (vm *VM) hostLog(_ context.Context, mod api.Module, stack []uint64) {
	level := zapcore.ErrorLevel
	switch api.DecodeI32(stack[0]) {
	case 0:
		level = zapcore.DebugLevel
	case 1:
		level = zapcore.InfoLevel
	case 2:
		level = zapcore.WarnLevel
	}
	msg := readGuestString(mod, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if ce := vm.guestLog.Check(level, msg); ce != nil {
		var fields []zap.Field
		if idx := vm.moduleIndex(mod); idx >= 0 {
			fields = append(fields, zap.String("module", vm.modules[idx].path))
		}
		ce.Write(fields...)
	}
}

func readGuestString(mod api.Module, ptr, length uint32) string {
	if length == 0 {
		return ""
	}
	mem := mod.Memory()
	if mem == nil {
		return ""
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return ""
	}
	return string(data)
}
