// Package compiler implements the single-pass Pratt-parser compiler: no
// intermediate AST, tokens flow directly into bytecode emitted onto a
// chain of Chunk-owning function scopes.
package compiler

import (
	"strconv"

	"github.com/loxlang/loxvm/bytecode"
	"github.com/loxlang/loxvm/table"
	"github.com/loxlang/loxvm/value"
)

// FunctionType tags what kind of body a function scope is compiling,
// since initializers and top-level script code have special return
// rules.
type FunctionType int

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

const maxLocals = 256
const maxUpvalues = 256

type local struct {
	name       Token
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

// fnScope is one entry in the compiler-context chain: one per enclosing
// function, each owning its own locals/upvalues tables and Chunk.
type fnScope struct {
	enclosing *fnScope
	function  *bytecode.ObjFunction
	typ       FunctionType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

// classScope is one entry in the class-compiler chain, tracked so `this`
// and `super` can be validated and so nested classes each get their own
// synthetic superclass local.
type classScope struct {
	enclosing      *classScope
	hasSuperclass  bool
}

// Parser drives the single-pass compile: it owns the scanner, the
// current function-scope chain, and accumulated diagnostics.
type Parser struct {
	scanner *Scanner

	current  Token
	previous Token

	hadError  bool
	panicMode bool
	errs      Errors

	interner *table.Interner

	fn    *fnScope
	class *classScope
}

// Compile scans and compiles source into a top-level script function.
// On failure it returns a nil function and an Errors value listing every
// diagnostic panic-mode recovery let it collect.
func Compile(source string, interner *table.Interner) (*bytecode.ObjFunction, error) {
	p := &Parser{
		scanner:  NewScanner(source),
		interner: interner,
	}
	p.pushFunctionScope(TypeScript, "")

	p.advance()
	for !p.match(TokenEOF) {
		p.declaration()
	}
	fn := p.endFunctionScope()

	if p.hadError {
		return nil, p.errs
	}
	return fn, nil
}

// --- token stream -----------------------------------------------------

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.Next()
		if p.current.Type != TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// --- error reporting ----------------------------------------------------

func (p *Parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *Parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *Parser) errorAt(tok Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errs = append(p.errs, &CompileError{Line: tok.Line, Message: msg})
}

// synchronize discards tokens until it reaches a likely statement
// boundary, so one syntax error does not cascade into a wall of
// follow-on diagnostics.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != TokenEOF {
		if p.previous.Type == TokenSemicolon {
			return
		}
		switch p.current.Type {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		p.advance()
	}
}

// --- function scope chain ----------------------------------------------

func (p *Parser) pushFunctionScope(typ FunctionType, name string) {
	fn := bytecode.NewObjFunction()
	if name != "" {
		fn.Name = p.interner.Intern(name)
	}
	scope := &fnScope{enclosing: p.fn, function: fn, typ: typ}

	// Slot 0 is reserved for the receiver in methods/initializers, and
	// otherwise for the (inaccessible) function value itself.
	receiver := ""
	if typ == TypeMethod || typ == TypeInitializer {
		receiver = "this"
	}
	scope.locals = append(scope.locals, local{name: Token{Lexeme: receiver}, depth: 0})

	p.fn = scope
}

func (p *Parser) endFunctionScope() *bytecode.ObjFunction {
	p.emitReturn()
	fn := p.fn.function
	p.fn = p.fn.enclosing
	return fn
}

func (p *Parser) currentChunk() *bytecode.Chunk { return p.fn.function.Chunk }

// --- byte/opcode emission ------------------------------------------------

func (p *Parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.previous.Line)
}

func (p *Parser) emitOp(op bytecode.OpCode) { p.emitByte(byte(op)) }

func (p *Parser) emitOpByte(op bytecode.OpCode, operand byte) {
	p.emitOp(op)
	p.emitByte(operand)
}

func (p *Parser) emitReturn() {
	if p.fn.typ == TypeInitializer {
		p.emitOpByte(bytecode.OpGetLocal, 0)
	} else {
		p.emitOp(bytecode.OpNil)
	}
	p.emitOp(bytecode.OpReturn)
}

func (p *Parser) makeConstant(v value.Value) byte {
	if len(p.currentChunk().Constants) >= 255 {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(p.currentChunk().AddConstant(v))
}

func (p *Parser) emitConstant(v value.Value) {
	p.emitOpByte(bytecode.OpConstant, p.makeConstant(v))
}

func (p *Parser) emitJump(op bytecode.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

func (p *Parser) patchJump(offset int) {
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.")
	}
	code := p.currentChunk().Code
	code[offset] = byte((jump >> 8) & 0xff)
	code[offset+1] = byte(jump & 0xff)
}

func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(bytecode.OpLoop)
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large.")
	}
	p.emitByte(byte((offset >> 8) & 0xff))
	p.emitByte(byte(offset & 0xff))
}

// --- scope bookkeeping ---------------------------------------------------

func (p *Parser) beginScope() { p.fn.scopeDepth++ }

func (p *Parser) endScope() {
	p.fn.scopeDepth--
	locals := p.fn.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > p.fn.scopeDepth {
		if locals[len(locals)-1].isCaptured {
			p.emitOp(bytecode.OpCloseUpvalue)
		} else {
			p.emitOp(bytecode.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	p.fn.locals = locals
}

// --- identifiers, locals, upvalues ---------------------------------------

func (p *Parser) identifierConstant(name Token) byte {
	return p.makeConstant(p.interner.Intern(name.Lexeme).ToValue())
}

func identifiersEqual(a, b Token) bool { return a.Lexeme == b.Lexeme }

func (p *Parser) addLocal(name Token) {
	if len(p.fn.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.fn.locals = append(p.fn.locals, local{name: name, depth: -1})
}

func (p *Parser) declareVariable() {
	if p.fn.scopeDepth == 0 {
		return
	}
	name := p.previous
	for i := len(p.fn.locals) - 1; i >= 0; i-- {
		l := p.fn.locals[i]
		if l.depth != -1 && l.depth < p.fn.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) parseVariable(errMsg string) byte {
	p.consume(TokenIdentifier, errMsg)
	p.declareVariable()
	if p.fn.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *Parser) markInitialized() {
	if p.fn.scopeDepth == 0 {
		return
	}
	p.fn.locals[len(p.fn.locals)-1].depth = p.fn.scopeDepth
}

func (p *Parser) defineVariable(global byte) {
	if p.fn.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(bytecode.OpDefineGlobal, global)
}

func resolveLocal(fn *fnScope, name Token) int {
	for i := len(fn.locals) - 1; i >= 0; i-- {
		if identifiersEqual(name, fn.locals[i].name) {
			return i
		}
	}
	return -1
}

func addUpvalue(fn *fnScope, index byte, isLocal bool) int {
	for i, uv := range fn.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fn.upvalues) >= maxUpvalues {
		return -1
	}
	fn.upvalues = append(fn.upvalues, upvalueRef{index: index, isLocal: isLocal})
	fn.function.UpvalueCount = len(fn.upvalues)
	return len(fn.upvalues) - 1
}

func resolveUpvalue(p *Parser, fn *fnScope, name Token) int {
	if fn.enclosing == nil {
		return -1
	}
	if local := resolveLocal(fn.enclosing, name); local != -1 {
		fn.enclosing.locals[local].isCaptured = true
		return addUpvalue(fn, byte(local), true)
	}
	if uv := resolveUpvalue(p, fn.enclosing, name); uv != -1 {
		return addUpvalue(fn, byte(uv), false)
	}
	return -1
}

// --- declarations ---------------------------------------------------------

func (p *Parser) declaration() {
	switch {
	case p.match(TokenClass):
		p.classDeclaration()
	case p.match(TokenFun):
		p.funDeclaration()
	case p.match(TokenVar):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) classDeclaration() {
	p.consume(TokenIdentifier, "Expect class name.")
	nameTok := p.previous
	nameConst := p.identifierConstant(nameTok)
	p.declareVariable()

	p.emitOpByte(bytecode.OpClass, nameConst)
	p.defineVariable(nameConst)

	cs := &classScope{enclosing: p.class}
	p.class = cs

	if p.match(TokenLess) {
		p.consume(TokenIdentifier, "Expect superclass name.")
		p.variable(false)
		if identifiersEqual(nameTok, p.previous) {
			p.error("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal(Token{Lexeme: "super"})
		p.defineVariable(0)

		p.namedVariable(nameTok, false)
		p.emitOp(bytecode.OpInherit)
		cs.hasSuperclass = true
	}

	p.namedVariable(nameTok, false)
	p.consume(TokenLeftBrace, "Expect '{' before class body.")
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.method()
	}
	p.consume(TokenRightBrace, "Expect '}' after class body.")
	p.emitOp(bytecode.OpPop) // discard the class value pushed for METHOD targeting

	if cs.hasSuperclass {
		p.endScope()
	}
	p.class = cs.enclosing
}

func (p *Parser) method() {
	p.consume(TokenIdentifier, "Expect method name.")
	nameTok := p.previous
	nameConst := p.identifierConstant(nameTok)

	typ := TypeMethod
	if nameTok.Lexeme == "init" {
		typ = TypeInitializer
	}
	p.functionBody(typ, nameTok.Lexeme)
	p.emitOpByte(bytecode.OpMethod, nameConst)
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.functionBody(TypeFunction, p.previous.Lexeme)
	p.defineVariable(global)
}

func (p *Parser) functionBody(typ FunctionType, name string) {
	p.pushFunctionScope(typ, name)
	p.beginScope()

	p.consume(TokenLeftParen, "Expect '(' after function name.")
	if !p.check(TokenRightParen) {
		for {
			p.fn.function.Arity++
			if p.fn.function.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after parameters.")
	p.consume(TokenLeftBrace, "Expect '{' before function body.")
	p.block()

	upvalues := p.fn.upvalues
	fn := p.endFunctionScope()

	p.emitOpByte(bytecode.OpClosure, p.makeConstant(fn.ToValue()))
	for _, uv := range upvalues {
		isLocal := byte(0)
		if uv.isLocal {
			isLocal = 1
		}
		p.emitByte(isLocal)
		p.emitByte(uv.index)
	}
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(TokenEqual) {
		p.expression()
	} else {
		p.emitOp(bytecode.OpNil)
	}
	p.consume(TokenSemicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

// --- statements -------------------------------------------------------

func (p *Parser) statement() {
	switch {
	case p.match(TokenPrint):
		p.printStatement()
	case p.match(TokenIf):
		p.ifStatement()
	case p.match(TokenReturn):
		p.returnStatement()
	case p.match(TokenWhile):
		p.whileStatement()
	case p.match(TokenFor):
		p.forStatement()
	case p.match(TokenFinish):
		p.finishStatement()
	case p.match(TokenAsync):
		p.asyncStatement()
	case p.match(TokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.declaration()
	}
	p.consume(TokenRightBrace, "Expect '}' after block.")
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after value.")
	p.emitOp(bytecode.OpPrint)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after expression.")
	p.emitOp(bytecode.OpPop)
}

func (p *Parser) ifStatement() {
	p.consume(TokenLeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()

	elseJump := p.emitJump(bytecode.OpJump)
	p.patchJump(thenJump)
	p.emitOp(bytecode.OpPop)

	if p.match(TokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.consume(TokenLeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(bytecode.OpPop)
}

func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(TokenSemicolon):
		// no initializer
	case p.match(TokenVar):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.match(TokenSemicolon) {
		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(bytecode.OpJumpIfFalse)
		p.emitOp(bytecode.OpPop)
	}

	if !p.match(TokenRightParen) {
		bodyJump := p.emitJump(bytecode.OpJump)
		incrementStart := len(p.currentChunk().Code)
		p.expression()
		p.emitOp(bytecode.OpPop)
		p.consume(TokenRightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(bytecode.OpPop)
	}
	p.endScope()
}

func (p *Parser) returnStatement() {
	if p.fn.typ == TypeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(TokenSemicolon) {
		p.emitReturn()
		return
	}
	if p.fn.typ == TypeInitializer {
		p.error("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after return value.")
	p.emitOp(bytecode.OpReturn)
}

func (p *Parser) finishStatement() {
	p.consume(TokenLeftBrace, "Expect '{' after 'finish'.")
	p.emitOp(bytecode.OpFinishBegin)
	p.beginScope()
	p.block()
	p.endScope()
	p.emitOp(bytecode.OpFinishEnd)
}

func (p *Parser) asyncStatement() {
	p.consume(TokenLeftBrace, "Expect '{' after 'async'.")
	jump := p.emitJump(bytecode.OpAsyncBegin)
	p.beginScope()
	p.block()
	p.endScope()
	p.emitOp(bytecode.OpAsyncEnd)
	p.patchJump(jump)
}

// --- expressions --------------------------------------------------------

func (p *Parser) expression() { p.parsePrecedence(PrecAssignment) }

func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := getRule(p.previous.Type).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.current.Type).precedence {
		p.advance()
		infix := getRule(p.previous.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(TokenEqual) {
		p.error("Invalid assignment target.")
	}
}

func (p *Parser) number(canAssign bool) {
	f, _ := strconv.ParseFloat(p.previous.Lexeme, 64)
	p.emitConstant(value.NumberVal(f))
}

func (p *Parser) stringLiteral(canAssign bool) {
	raw := p.previous.Lexeme
	content := raw[1 : len(raw)-1]
	s := p.interner.Intern(content)
	p.emitConstant(s.ToValue())
}

func (p *Parser) literal(canAssign bool) {
	switch p.previous.Type {
	case TokenFalse:
		p.emitOp(bytecode.OpFalse)
	case TokenTrue:
		p.emitOp(bytecode.OpTrue)
	case TokenNil:
		p.emitOp(bytecode.OpNil)
	}
}

func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after expression.")
}

func (p *Parser) unary(canAssign bool) {
	opType := p.previous.Type
	p.parsePrecedence(PrecUnary)
	switch opType {
	case TokenBang:
		p.emitOp(bytecode.OpNot)
	case TokenMinus:
		p.emitOp(bytecode.OpNegate)
	}
}

func (p *Parser) binary(canAssign bool) {
	opType := p.previous.Type
	rule := getRule(opType)
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case TokenBangEqual:
		p.emitOp(bytecode.OpEqual)
		p.emitOp(bytecode.OpNot)
	case TokenEqualEqual:
		p.emitOp(bytecode.OpEqual)
	case TokenGreater:
		p.emitOp(bytecode.OpGreater)
	case TokenGreaterEqual:
		p.emitOp(bytecode.OpLess)
		p.emitOp(bytecode.OpNot)
	case TokenLess:
		p.emitOp(bytecode.OpLess)
	case TokenLessEqual:
		p.emitOp(bytecode.OpGreater)
		p.emitOp(bytecode.OpNot)
	case TokenPlus:
		p.emitOp(bytecode.OpAdd)
	case TokenMinus:
		p.emitOp(bytecode.OpSubtract)
	case TokenStar:
		p.emitOp(bytecode.OpMultiply)
	case TokenSlash:
		p.emitOp(bytecode.OpDivide)
	case TokenPercent:
		p.emitOp(bytecode.OpModulo)
	}
}

func (p *Parser) and(canAssign bool) {
	endJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or(canAssign bool) {
	elseJump := p.emitJump(bytecode.OpJumpIfFalse)
	endJump := p.emitJump(bytecode.OpJump)

	p.patchJump(elseJump)
	p.emitOp(bytecode.OpPop)

	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) call(canAssign bool) {
	argc := p.argumentList()
	p.emitOpByte(bytecode.OpCall, argc)
}

func (p *Parser) argumentList() byte {
	argc := 0
	if !p.check(TokenRightParen) {
		for {
			p.expression()
			if argc == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after arguments.")
	return byte(argc)
}

func (p *Parser) dot(canAssign bool) {
	p.consume(TokenIdentifier, "Expect property name after '.'.")
	nameConst := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(TokenEqual):
		p.expression()
		p.emitOpByte(bytecode.OpSetProperty, nameConst)
	case p.match(TokenLeftParen):
		argc := p.argumentList()
		p.emitOpByte(bytecode.OpInvoke, nameConst)
		p.emitByte(argc)
	default:
		p.emitOpByte(bytecode.OpGetProperty, nameConst)
	}
}

func (p *Parser) listLiteral(canAssign bool) {
	count := 0
	if !p.check(TokenRightBracket) {
		for {
			p.expression()
			if count == 255 {
				p.error("Can't have more than 255 elements in a list literal.")
			}
			count++
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightBracket, "Expect ']' after list elements.")
	p.emitOpByte(bytecode.OpBuildList, byte(count))
}

func (p *Parser) subscript(canAssign bool) {
	p.expression()
	p.consume(TokenRightBracket, "Expect ']' after index.")
	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOp(bytecode.OpIndexSet)
	} else {
		p.emitOp(bytecode.OpIndexGet)
	}
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.previous, canAssign)
}

func (p *Parser) namedVariable(name Token, canAssign bool) {
	var getOp, setOp bytecode.OpCode
	arg := resolveLocal(p.fn, name)
	if arg != -1 {
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else if arg = resolveUpvalue(p, p.fn, name); arg != -1 {
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

func (p *Parser) this(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

func (p *Parser) super(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.")
	}

	p.consume(TokenDot, "Expect '.' after 'super'.")
	p.consume(TokenIdentifier, "Expect superclass method name.")
	nameConst := p.identifierConstant(p.previous)

	p.namedVariable(Token{Type: TokenThis, Lexeme: "this"}, false)
	if p.match(TokenLeftParen) {
		argc := p.argumentList()
		p.namedVariable(Token{Type: TokenSuper, Lexeme: "super"}, false)
		p.emitOpByte(bytecode.OpSuperInvoke, nameConst)
		p.emitByte(argc)
	} else {
		p.namedVariable(Token{Type: TokenSuper, Lexeme: "super"}, false)
		p.emitOpByte(bytecode.OpGetSuper, nameConst)
	}
}

// future concretizes the spec's open `future` token into a fixed shape:
// `future { block }` runs block on a sibling VM and immediately yields a
// Future value in the parent, mirroring async's jump-and-skip layout so
// the dispatcher can spawn the child at the same code offset the parent
// jumps over.
func (p *Parser) future(canAssign bool) {
	p.consume(TokenLeftBrace, "Expect '{' after 'future'.")
	jump := p.emitJump(bytecode.OpFutureBegin)
	p.beginScope()
	p.block()
	p.endScope()
	p.emitOp(bytecode.OpAsyncEnd)
	p.patchJump(jump)
}

func (p *Parser) lambda(canAssign bool) {
	p.error("Lambda expressions are not yet implemented.")
}

func (p *Parser) reduce(canAssign bool) {
	p.error("Reduce expressions are not yet implemented.")
}
