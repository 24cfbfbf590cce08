// Package emit translates optimized MIR (internal/mir) into LLVM IR text.
// It reuses the teacher compiler's approach to code generation — build a
// typed module with a Context/Builder pair and print it — but is driven
// from BMB's own SSA-with-block-parameters MIR instead of a raw syntax
// tree, and fills function bodies across a worker pool the same way
// ir/llvm/transform.go fills VSL function bodies.
package emit

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"tinygo.org/x/go-llvm"

	"bmb/internal/mir"
	"bmb/internal/types"
)

// Options configures one emission run.
type Options struct {
	Threads int // worker count for function body generation; <=1 is sequential
	Module  string
}

var stringPrefix = "L.str"

// emitter holds the state built once, read-only, before function bodies
// are generated; nothing here is mutated once Emit's declare phase
// finishes, so concurrent body generation never needs a lock on it —
// unlike globals in transform.go, which stays mutable into the parallel
// phase and so carries a mutex.
type emitter struct {
	ctx         llvm.Context
	mod         llvm.Module
	env         *types.Env
	structTypes map[string]llvm.Type
	funcs       map[string]llvm.Value
	strings     []llvm.Value
}

// Emit lowers prog to LLVM IR text. env is the same resolved environment
// the type checker produced (internal/types.Info.Env): it carries the
// struct/enum field layouts MIR's TypeName references alone can't
// reconstruct.
func Emit(prog *mir.Program, env *types.Env, opt Options) (string, error) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	name := opt.Module
	if name == "" {
		name = "bmb_module"
	}
	m := ctx.NewModule(filepath.Base(name))
	defer m.Dispose()

	e := &emitter{
		ctx:         ctx,
		mod:         m,
		env:         env,
		structTypes: make(map[string]llvm.Type),
		funcs:       make(map[string]llvm.Value),
	}

	e.declareRecordTypes()
	e.declareStrings(prog.Strings)
	e.declareRuntime()
	if err := e.declareFunctions(prog.Functions); err != nil {
		return "", err
	}

	if err := e.emitBodies(prog.Functions, opt.Threads); err != nil {
		return "", err
	}

	return m.String(), nil
}

// declareRecordTypes pre-declares every struct and enum as a named,
// initially opaque LLVM struct type, then fills in bodies once every name
// exists — the two-pass shape recursive/mutually-referential record types
// need, same reason the teacher's genFuncHeader phase runs fully before
// genFuncBody: fields may reference a type declared later in source order.
// Struct/enum names are sorted before any iteration over e.env.Structs or
// e.env.Enums: both are plain Go maps, and §4.5/§4.6 require the emitted
// text never depend on Go's randomized map iteration order.
func (e *emitter) declareRecordTypes() {
	structNames := sortedKeys(e.env.Structs)
	enumNames := sortedKeysEnum(e.env.Enums)

	for _, name := range structNames {
		e.structTypes[name] = e.ctx.StructCreateNamed(name)
	}
	for _, name := range enumNames {
		e.structTypes[name] = e.ctx.StructCreateNamed(name)
	}
	for _, name := range structNames {
		info := e.env.Structs[name]
		fields := make([]llvm.Type, len(info.FieldOrder))
		for i, fname := range info.FieldOrder {
			fields[i] = e.llvmType(info.Fields[fname])
		}
		e.structTypes[name].StructSetBody(fields, false)
	}
	for _, name := range enumNames {
		info := e.env.Enums[name]
		// Flattened layout: tag, then every variant's payload fields
		// concatenated in declaration order (see mir.InstrRecordAlloc).
		fields := []llvm.Type{llvm.Int64Type()}
		for _, variant := range info.VariantOrder {
			for _, t := range info.Variants[variant] {
				fields = append(fields, e.llvmType(t))
			}
		}
		e.structTypes[name].StructSetBody(fields, false)
	}
}

func sortedKeys(m map[string]*types.StructInfo) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeysEnum(m map[string]*types.EnumInfo) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// declareStrings materializes the interned string-literal pool as global
// constants once, up front, so every function body references the same
// llvm.Value for a given literal rather than re-emitting it per use site.
func (e *emitter) declareStrings(pool []string) {
	e.strings = make([]llvm.Value, len(pool))
	b := e.ctx.NewBuilder()
	defer b.Dispose()
	for i, s := range pool {
		e.strings[i] = b.CreateGlobalStringPtr(s, stringPrefix)
	}
}

// declareRuntime declares every §6 runtime-library extern up front, in the
// fixed order mir.RuntimeDecls returns, so a call lowered to e.g.
// bmb_println_i64 always finds its declaration regardless of whether the
// source program actually uses it.
func (e *emitter) declareRuntime() {
	for _, d := range mir.RuntimeDecls() {
		params := make([]llvm.Type, len(d.Params))
		for i, p := range d.Params {
			params[i] = e.llvmType(p)
		}
		ftyp := llvm.FunctionType(e.llvmType(d.Ret), params, false)
		e.funcs[d.Name] = llvm.AddFunction(e.mod, d.Name, ftyp)
	}
}

func (e *emitter) declareFunctions(fns []*mir.Function) error {
	for _, fn := range fns {
		if _, dup := e.funcs[fn.Name]; dup {
			return fmt.Errorf("duplicate function declaration %q", fn.Name)
		}
		params := make([]llvm.Type, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = e.llvmType(p.Type)
		}
		ftyp := llvm.FunctionType(e.llvmType(fn.Ret), params, false)
		llfn := llvm.AddFunction(e.mod, fn.Name, ftyp)
		for i, p := range llfn.Params() {
			p.SetName(fn.Params[i].Name)
		}
		e.funcs[fn.Name] = llfn
	}
	return nil
}

// emitBodies fills every declared function's body. Above the thread
// threshold it splits functions across a worker pool exactly like
// ir/optimise.go and ir/llvm/transform.go do: each goroutine gets its own
// Builder so two threads never interleave writes into the same LLVM
// basic block, and functions are reassembled into the module in the
// fixed declaration order established by declareFunctions, so the
// generated text does not depend on which goroutine finishes first.
func (e *emitter) emitBodies(fns []*mir.Function, threads int) error {
	n := len(fns)
	if n == 0 {
		return nil
	}
	if threads < 1 {
		threads = 1
	}
	if threads > n {
		threads = n
	}
	if threads == 1 {
		b := e.ctx.NewBuilder()
		defer b.Dispose()
		for _, fn := range fns {
			if err := e.emitFunctionBody(b, fn); err != nil {
				return err
			}
		}
		return nil
	}

	perJob := n / threads
	residual := n % threads
	start := 0
	var wg sync.WaitGroup
	wg.Add(threads)
	cerr := make(chan error, threads)
	for i := 0; i < threads; i++ {
		end := start + perJob
		if i < residual {
			end++
		}
		go func(lo, hi int) {
			defer wg.Done()
			b := e.ctx.NewBuilder()
			defer b.Dispose()
			for _, fn := range fns[lo:hi] {
				if err := e.emitFunctionBody(b, fn); err != nil {
					cerr <- err
					return
				}
			}
		}(start, end)
		start = end
	}
	wg.Wait()
	close(cerr)
	for err := range cerr {
		if err != nil {
			return err
		}
	}
	return nil
}

// llvmType maps an elaborated BMB type to its LLVM representation.
// Generic type arguments are erased rather than monomorphized: every
// instantiation of a generic struct/enum shares one LLVM layout. This is
// a deliberate simplification, not an oversight — true
// monomorphization would need a name-mangling pass over every generic
// instantiation site, which this emitter does not perform.
func (e *emitter) llvmType(t types.Type) llvm.Type {
	switch v := types.ToOption(t).(type) {
	case types.Primitive:
		switch v.Name {
		case "i64":
			return llvm.Int64Type()
		case "f64":
			return llvm.DoubleType()
		case "bool":
			return llvm.Int1Type()
		case "string":
			return llvm.PointerType(llvm.Int8Type(), 0)
		default: // "unit"
			return llvm.StructType(nil, false)
		}
	case types.Named:
		if st, ok := e.structTypes[v.Name]; ok {
			return st
		}
		return llvm.StructType(nil, false)
	case types.Tuple:
		elems := make([]llvm.Type, len(v.Elems))
		for i, el := range v.Elems {
			elems[i] = e.llvmType(el)
		}
		return llvm.StructType(elems, false)
	case types.Function:
		// A closure value: {function pointer, capture-record pointer}.
		ptr := llvm.PointerType(llvm.Int8Type(), 0)
		return llvm.StructType([]llvm.Type{ptr, ptr}, false)
	default:
		return llvm.Int64Type()
	}
}
