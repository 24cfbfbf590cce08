package emit

import (
	"tinygo.org/x/go-llvm"

	"bmb/internal/mir"
	"bmb/internal/types"
)

// funcState is the per-function scratch the worker goroutine filling in
// fn's body threads through instruction translation. Nothing here is
// shared with another function's funcState, which is what makes filling
// bodies across a worker pool safe.
type funcState struct {
	blocks map[string]llvm.BasicBlock
	phis   map[string][]llvm.Value
	values map[string]llvm.Value
	locals map[string]llvm.Value
	consts map[string]int64 // int-valued Places traceable to an InstrConst, for enum tag resolution
}

func (e *emitter) emitFunctionBody(b llvm.Builder, fn *mir.Function) error {
	llfn := e.funcs[fn.Name]

	st := &funcState{
		blocks: make(map[string]llvm.BasicBlock, len(fn.Blocks)),
		phis:   make(map[string][]llvm.Value),
		values: make(map[string]llvm.Value),
		locals: make(map[string]llvm.Value, len(fn.Locals)),
		consts: collectIntConsts(fn),
	}

	prologue := llvm.AddBasicBlock(llfn, "entry")
	for _, bb := range fn.Blocks {
		st.blocks[bb.Label] = llvm.AddBasicBlock(llfn, bb.Label)
	}

	for i, p := range llfn.Params() {
		st.values[fn.Params[i].Name] = p
	}

	b.SetInsertPointAtEnd(prologue)
	for _, loc := range fn.Locals {
		st.locals[loc.Name] = b.CreateAlloca(e.llvmType(loc.Type), loc.Name)
	}
	if len(fn.Blocks) > 0 {
		b.CreateBr(st.blocks[fn.Blocks[0].Label])
	} else {
		b.CreateRetVoid()
	}

	// Block parameters become PHI nodes, created before any instruction so
	// a forward Goto/Branch target can be wired up regardless of emission
	// order — AddIncoming is called later, once each predecessor's
	// terminator is translated.
	for _, bb := range fn.Blocks {
		if len(bb.Params) == 0 {
			continue
		}
		b.SetInsertPointAtEnd(st.blocks[bb.Label])
		phis := make([]llvm.Value, len(bb.Params))
		for i, p := range bb.Params {
			phi := b.CreatePHI(e.llvmType(p.Type), p.Name)
			phis[i] = phi
			st.values[p.Name] = phi
		}
		st.phis[bb.Label] = phis
	}

	for _, bb := range fn.Blocks {
		b.SetInsertPointAtEnd(st.blocks[bb.Label])
		for _, in := range bb.Instrs {
			if err := e.emitInstr(b, st, in); err != nil {
				return err
			}
		}
		if err := e.emitTerm(b, st, bb); err != nil {
			return err
		}
	}
	return nil
}

// collectIntConsts maps every Place defined by an InstrConst of kind
// ConstInt to its compile-time value. Enum constructor tags (see
// mir.InstrRecordAlloc) are always produced this way, so this lets the
// record-alloc emitter recover which variant is being constructed without
// MIR needing a separate variant-tag field.
func collectIntConsts(fn *mir.Function) map[string]int64 {
	out := make(map[string]int64)
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if c, ok := in.(*mir.InstrConst); ok && c.Value.Kind == mir.ConstInt {
				out[c.Dest.Name] = c.Value.I
			}
		}
	}
	return out
}

func (e *emitter) resolveAddr(st *funcState, name string) llvm.Value {
	if v, ok := st.locals[name]; ok {
		return v
	}
	return st.values[name]
}

func (e *emitter) emitInstr(b llvm.Builder, st *funcState, in mir.Instr) error {
	switch v := in.(type) {
	case *mir.InstrConst:
		st.values[v.Dest.Name] = e.constValue(v.Value)

	case *mir.InstrCopy:
		st.values[v.Dest.Name] = st.values[v.Src.Name]

	case *mir.InstrBinOp:
		st.values[v.Dest.Name] = e.binOp(b, v.Op, st.values[v.L.Name], st.values[v.R.Name])

	case *mir.InstrUnaryOp:
		st.values[v.Dest.Name] = e.unaryOp(b, v.Op, st.values[v.X.Name])

	case *mir.InstrCall:
		args := make([]llvm.Value, len(v.Args))
		for i, a := range v.Args {
			args[i] = st.values[a.Name]
		}
		call := b.CreateCall(e.funcs[v.Name], args, "")
		if v.Tail {
			call.SetTailCall(true)
		}
		if v.Dest != nil {
			st.values[v.Dest.Name] = call
		}

	case *mir.InstrClosureAlloc:
		st.values[v.Dest.Name] = e.closureAlloc(b, st, v)

	case *mir.InstrClosureCall:
		st.values[v.Dest.Name] = e.closureCall(b, st, v)

	case *mir.InstrLoad:
		st.values[v.Dest.Name] = b.CreateLoad(e.resolveAddr(st, v.Addr.Name), "")

	case *mir.InstrStore:
		b.CreateStore(st.values[v.Value.Name], e.resolveAddr(st, v.Addr.Name))

	case *mir.InstrGEP:
		base := e.resolveAddr(st, v.Base.Name)
		idx := llvm.ConstInt(llvm.Int32Type(), uint64(v.Index), false)
		zero := llvm.ConstInt(llvm.Int32Type(), 0, false)
		st.values[v.Dest.Name] = b.CreateGEP(base, []llvm.Value{zero, idx}, "")

	case *mir.InstrRecordAlloc:
		st.values[v.Dest.Name] = e.recordAlloc(b, st, v)
	}
	return nil
}

func (e *emitter) constValue(c mir.Const) llvm.Value {
	switch c.Kind {
	case mir.ConstInt:
		return llvm.ConstInt(llvm.Int64Type(), uint64(c.I), true)
	case mir.ConstFloat:
		return llvm.ConstFloat(llvm.DoubleType(), c.F)
	case mir.ConstBool:
		var v uint64
		if c.B {
			v = 1
		}
		return llvm.ConstInt(llvm.Int1Type(), v, false)
	case mir.ConstStr:
		return e.strings[int(c.I)]
	default: // ConstUnit
		return llvm.ConstNull(llvm.StructType(nil, false))
	}
}

func (e *emitter) binOp(b llvm.Builder, op string, l, r llvm.Value) llvm.Value {
	switch op {
	case "i+":
		return b.CreateAdd(l, r, "")
	case "i-":
		return b.CreateSub(l, r, "")
	case "i*":
		return b.CreateMul(l, r, "")
	case "i/":
		return b.CreateSDiv(l, r, "")
	case "i%":
		return b.CreateSRem(l, r, "")
	case "i<<":
		return b.CreateShl(l, r, "")
	case "i>>":
		return b.CreateAShr(l, r, "")
	case "i==":
		return b.CreateICmp(llvm.IntEQ, l, r, "")
	case "i!=":
		return b.CreateICmp(llvm.IntNE, l, r, "")
	case "i<":
		return b.CreateICmp(llvm.IntSLT, l, r, "")
	case "i>":
		return b.CreateICmp(llvm.IntSGT, l, r, "")
	case "i<=":
		return b.CreateICmp(llvm.IntSLE, l, r, "")
	case "i>=":
		return b.CreateICmp(llvm.IntSGE, l, r, "")
	case "f+":
		return b.CreateFAdd(l, r, "")
	case "f-":
		return b.CreateFSub(l, r, "")
	case "f*":
		return b.CreateFMul(l, r, "")
	case "f/":
		return b.CreateFDiv(l, r, "")
	case "f==":
		return b.CreateFCmp(llvm.FloatOEQ, l, r, "")
	case "f!=":
		return b.CreateFCmp(llvm.FloatONE, l, r, "")
	case "f<":
		return b.CreateFCmp(llvm.FloatOLT, l, r, "")
	case "f>":
		return b.CreateFCmp(llvm.FloatOGT, l, r, "")
	case "f<=":
		return b.CreateFCmp(llvm.FloatOLE, l, r, "")
	case "f>=":
		return b.CreateFCmp(llvm.FloatOGE, l, r, "")
	}
	return l
}

func (e *emitter) unaryOp(b llvm.Builder, op string, x llvm.Value) llvm.Value {
	switch op {
	case "ineg":
		return b.CreateSub(llvm.ConstInt(llvm.Int64Type(), 0, true), x, "")
	case "fneg":
		return b.CreateFSub(llvm.ConstFloat(llvm.DoubleType(), 0.0), x, "")
	case "!":
		return b.CreateXor(llvm.ConstInt(llvm.Int1Type(), 1, false), x, "")
	}
	return x
}

// closureAlloc builds a {fnptr, envptr} pair. The capture record is
// stack-allocated: this emitter targets the fake/stub backend of §4.7's
// bootstrap driver, not a real linked executable, so a closure never
// needs to outlive its creating frame. A production backend would heap
// allocate the capture record through the runtime C library instead,
// which is explicitly out of this repo's scope.
func (e *emitter) closureAlloc(b llvm.Builder, st *funcState, v *mir.InstrClosureAlloc) llvm.Value {
	ptrTy := llvm.PointerType(llvm.Int8Type(), 0)
	fn := e.funcs[v.FnName]
	fnPtr := b.CreateBitCast(fn, ptrTy, "")

	var envPtr llvm.Value
	if len(v.Captures) == 0 {
		envPtr = llvm.ConstNull(ptrTy)
	} else {
		envTy := make([]llvm.Type, len(v.Captures))
		for i, c := range v.Captures {
			envTy[i] = e.llvmType(c.Type)
		}
		structTy := llvm.StructType(envTy, false)
		alloc := b.CreateAlloca(structTy, "env")
		for i, c := range v.Captures {
			idx := llvm.ConstInt(llvm.Int32Type(), uint64(i), false)
			zero := llvm.ConstInt(llvm.Int32Type(), 0, false)
			addr := b.CreateGEP(alloc, []llvm.Value{zero, idx}, "")
			b.CreateStore(st.values[c.Name], addr)
		}
		envPtr = b.CreateBitCast(alloc, ptrTy, "")
	}

	closureTy := llvm.StructType([]llvm.Type{ptrTy, ptrTy}, false)
	val := b.CreateInsertValue(llvm.ConstNull(closureTy), fnPtr, 0, "")
	val = b.CreateInsertValue(val, envPtr, 1, "")
	return val
}

// closureCall extracts the function/environment pair and invokes it,
// threading the environment pointer as the synthesized function's
// leading argument, matching how lowering's free-variable capture
// rewrite shapes every closure body's signature.
func (e *emitter) closureCall(b llvm.Builder, st *funcState, v *mir.InstrClosureCall) llvm.Value {
	closure := st.values[v.Closure.Name]
	fnPtr := b.CreateExtractValue(closure, 0, "")
	envPtr := b.CreateExtractValue(closure, 1, "")

	fnType, _ := v.Closure.Type.(types.Function)
	paramTypes := make([]llvm.Type, 0, len(fnType.Params)+1)
	paramTypes = append(paramTypes, llvm.PointerType(llvm.Int8Type(), 0))
	for _, p := range fnType.Params {
		paramTypes = append(paramTypes, e.llvmType(p))
	}
	llft := llvm.FunctionType(e.llvmType(fnType.Ret), paramTypes, false)
	fn := b.CreateBitCast(fnPtr, llvm.PointerType(llft, 0), "")

	args := make([]llvm.Value, 0, len(v.Args)+1)
	args = append(args, envPtr)
	for _, a := range v.Args {
		args = append(args, st.values[a.Name])
	}
	return b.CreateCall(fn, args, "")
}

// recordAlloc backs both plain struct literals and tagged enum
// constructors. A struct's Fields line up 1:1 with its declared
// FieldOrder. An enum constructor's Fields are narrower — [tag, this
// variant's own payload] — so its payload is placed at the flattened
// offset internal/mir/lower.go's bindCtorPayload computes, recovered
// here via the tag's traced compile-time value; slots belonging to other
// variants are left uninitialized, which is safe because nothing ever
// reads them without first checking the tag.
func (e *emitter) recordAlloc(b llvm.Builder, st *funcState, v *mir.InstrRecordAlloc) llvm.Value {
	structTy := e.structTypes[v.TypeName]
	alloc := b.CreateAlloca(structTy, "")
	store := func(idx int, val llvm.Value) {
		zero := llvm.ConstInt(llvm.Int32Type(), 0, false)
		field := llvm.ConstInt(llvm.Int32Type(), uint64(idx), false)
		addr := b.CreateGEP(alloc, []llvm.Value{zero, field}, "")
		b.CreateStore(val, addr)
	}

	if info, ok := e.env.Enums[v.TypeName]; ok && len(v.Fields) > 0 {
		tagVal := st.values[v.Fields[0].Name]
		store(0, tagVal)
		tag, ok := st.consts[v.Fields[0].Name]
		if !ok {
			tag = 0
		}
		offset := 1
		for i := 0; i < int(tag) && i < len(info.VariantOrder); i++ {
			offset += len(info.Variants[info.VariantOrder[i]])
		}
		for i, f := range v.Fields[1:] {
			store(offset+i, st.values[f.Name])
		}
		return alloc
	}

	for i, f := range v.Fields {
		store(i, st.values[f.Name])
	}
	return alloc
}

func (e *emitter) emitTerm(b llvm.Builder, st *funcState, bb *mir.BasicBlock) error {
	from := st.blocks[bb.Label]
	switch t := bb.Term.(type) {
	case *mir.TermReturn:
		if t.Value == nil {
			b.CreateRet(llvm.ConstNull(llvm.StructType(nil, false)))
		} else {
			b.CreateRet(st.values[t.Value.Name])
		}
	case *mir.TermGoto:
		target := st.blocks[t.Target]
		b.CreateBr(target)
		addIncoming(st, t.Target, t.Args, from)
	case *mir.TermBranch:
		b.CreateCondBr(st.values[t.Cond.Name], st.blocks[t.Then], st.blocks[t.Else])
		addIncoming(st, t.Then, t.ThenArgs, from)
		addIncoming(st, t.Else, t.ElseArgs, from)
	case *mir.TermUnreachable:
		b.CreateUnreachable()
	}
	return nil
}

func addIncoming(st *funcState, target string, args []mir.Place, from llvm.BasicBlock) {
	phis := st.phis[target]
	for i, p := range phis {
		if i >= len(args) {
			break
		}
		p.AddIncoming([]llvm.Value{st.values[args[i].Name]}, []llvm.BasicBlock{from})
	}
}
