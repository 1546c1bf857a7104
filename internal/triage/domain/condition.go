package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Condition 是一条已编译的 SOP 判定条件。
// 语法受限：比较(== != > >= < <=)、布尔组合(AND OR NOT)、集合成员(in [...])、
// 字符串包含(contains)、括号与字面量。不支持算术、函数调用与正则。
// 条件在规则装载时解析一次，求值阶段任何字段缺失或类型不符都返回错误，
// 由调用方按"宁缺勿滥"处理(该规则视为不匹配)。
type Condition struct {
	source string
	root   condNode
}

// Source 返回原始条件文本。
func (c *Condition) Source() string { return c.source }

// Namespace 是条件求值的取值空间，键为顶层段(findings/context/alert)，
// 值为已展平的字段表。
type Namespace map[string]map[string]any

func (ns Namespace) resolve(path []string) (any, bool) {
	if len(path) != 2 {
		return nil, false
	}
	section, ok := ns[path[0]]
	if !ok {
		return nil, false
	}
	v, ok := section[path[1]]
	return v, ok
}

// ParseCondition 将条件文本编译为可求值的 Condition。
// 文本越界(未知算符、悬挂 token、未闭合括号)一律在此拒绝。
func ParseCondition(text string) (*Condition, error) {
	toks, err := scanCondition(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	p := &condParser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if p.peek().kind != condTokEOF {
		return nil, fmt.Errorf("%w: unexpected token %q after condition", ErrConfiguration, p.peek().text)
	}
	return &Condition{source: text, root: root}, nil
}

// Eval 在给定取值空间上求值。字段缺失或操作数类型不符返回错误。
func (c *Condition) Eval(ns Namespace) (bool, error) {
	return c.root.eval(ns)
}

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

type condNode interface {
	eval(ns Namespace) (bool, error)
}

type logicNode struct {
	and         bool
	left, right condNode
}

func (n *logicNode) eval(ns Namespace) (bool, error) {
	l, err := n.left.eval(ns)
	if err != nil {
		return false, err
	}
	if n.and && !l {
		return false, nil
	}
	if !n.and && l {
		return true, nil
	}
	return n.right.eval(ns)
}

type notNode struct {
	inner condNode
}

func (n *notNode) eval(ns Namespace) (bool, error) {
	v, err := n.inner.eval(ns)
	if err != nil {
		return false, err
	}
	return !v, nil
}

type cmpNode struct {
	left  operand
	op    string
	right operand
}

func (n *cmpNode) eval(ns Namespace) (bool, error) {
	l, err := n.left.value(ns)
	if err != nil {
		return false, err
	}
	r, err := n.right.value(ns)
	if err != nil {
		return false, err
	}
	switch n.op {
	case "==":
		return condEqual(l, r), nil
	case "!=":
		return !condEqual(l, r), nil
	case ">", ">=", "<", "<=":
		lf, lok := condToFloat(l)
		rf, rok := condToFloat(r)
		if !lok || !rok {
			return false, fmt.Errorf("operator %s needs numeric operands, got %T and %T", n.op, l, r)
		}
		switch n.op {
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		case "<":
			return lf < rf, nil
		default:
			return lf <= rf, nil
		}
	case "contains":
		ls, ok := l.(string)
		if !ok {
			return false, fmt.Errorf("contains needs a string left operand, got %T", l)
		}
		return strings.Contains(ls, fmt.Sprintf("%v", r)), nil
	case "in":
		set, ok := r.([]any)
		if !ok {
			return false, fmt.Errorf("in needs a list right operand, got %T", r)
		}
		for _, item := range set {
			if condEqual(l, item) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown operator %q", n.op)
	}
}

type operand interface {
	value(ns Namespace) (any, error)
}

type literalOperand struct {
	v any
}

func (o *literalOperand) value(Namespace) (any, error) { return o.v, nil }

type listOperand struct {
	items []any
}

func (o *listOperand) value(Namespace) (any, error) { return o.items, nil }

type fieldOperand struct {
	path []string
}

func (o *fieldOperand) value(ns Namespace) (any, error) {
	v, ok := ns.resolve(o.path)
	if !ok {
		return nil, fmt.Errorf("field %q not present", strings.Join(o.path, "."))
	}
	return v, nil
}

// condEqual 数值按值比较(容忍浮点误差)，布尔严格比较，其余退化为字符串比较。
func condEqual(l, r any) bool {
	lf, lok := condToFloat(l)
	rf, rok := condToFloat(r)
	if lok && rok {
		return math.Abs(lf-rf) < 1e-9
	}
	if lb, ok := l.(bool); ok {
		rb, ok := r.(bool)
		return ok && lb == rb
	}
	return fmt.Sprintf("%v", l) == fmt.Sprintf("%v", r)
}

func condToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// 词法与语法
// ---------------------------------------------------------------------------

type condTokKind int

const (
	condTokWord condTokKind = iota
	condTokOp
	condTokString
	condTokNumber
	condTokBool
	condTokLParen
	condTokRParen
	condTokLBracket
	condTokRBracket
	condTokComma
	condTokEOF
)

type condToken struct {
	kind condTokKind
	text string
}

func scanCondition(src string) ([]condToken, error) {
	var toks []condToken
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case unicode.IsSpace(rune(ch)):
			i++
		case ch == '(':
			toks = append(toks, condToken{condTokLParen, "("})
			i++
		case ch == ')':
			toks = append(toks, condToken{condTokRParen, ")"})
			i++
		case ch == '[':
			toks = append(toks, condToken{condTokLBracket, "["})
			i++
		case ch == ']':
			toks = append(toks, condToken{condTokRBracket, "]"})
			i++
		case ch == ',':
			toks = append(toks, condToken{condTokComma, ","})
			i++
		case ch == '=' || ch == '!' || ch == '<' || ch == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				toks = append(toks, condToken{condTokOp, src[i : i+2]})
				i += 2
			} else if ch == '<' || ch == '>' {
				toks = append(toks, condToken{condTokOp, string(ch)})
				i++
			} else {
				return nil, fmt.Errorf("unexpected character %q at %d", ch, i)
			}
		case ch == '"' || ch == '\'':
			quote := ch
			j := i + 1
			for j < len(src) && src[j] != quote {
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated string at %d", i)
			}
			toks = append(toks, condToken{condTokString, src[i+1 : j]})
			i = j + 1
		case unicode.IsDigit(rune(ch)) || (ch == '-' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := i + 1
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			toks = append(toks, condToken{condTokNumber, src[i:j]})
			i = j
		case unicode.IsLetter(rune(ch)) || ch == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_' || src[j] == '.') {
				j++
			}
			word := src[i:j]
			if lw := strings.ToLower(word); lw == "true" || lw == "false" {
				toks = append(toks, condToken{condTokBool, lw})
			} else {
				toks = append(toks, condToken{condTokWord, word})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", ch, i)
		}
	}
	return append(toks, condToken{condTokEOF, ""}), nil
}

type condParser struct {
	toks []condToken
	pos  int
}

func (p *condParser) peek() condToken { return p.toks[p.pos] }

func (p *condParser) next() condToken {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *condParser) wordIs(kw string) bool {
	t := p.peek()
	return t.kind == condTokWord && strings.EqualFold(t.text, kw)
}

// or = and ( OR and )*
func (p *condParser) parseOr() (condNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.wordIs("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logicNode{and: false, left: left, right: right}
	}
	return left, nil
}

// and = unary ( AND unary )*
func (p *condParser) parseAnd() (condNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.wordIs("and") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &logicNode{and: true, left: left, right: right}
	}
	return left, nil
}

// unary = NOT unary | "(" or ")" | comparison
func (p *condParser) parseUnary() (condNode, error) {
	if p.wordIs("not") {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	}
	if p.peek().kind == condTokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != condTokRParen {
			return nil, fmt.Errorf("missing closing parenthesis, got %q", p.peek().text)
		}
		p.next()
		return inner, nil
	}
	return p.parseComparison()
}

// comparison = operand op operand | operand "in" list
func (p *condParser) parseComparison() (condNode, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	var op string
	switch {
	case t.kind == condTokOp:
		op = t.text
		p.next()
	case p.wordIs("contains"):
		op = "contains"
		p.next()
	case p.wordIs("in"):
		op = "in"
		p.next()
	default:
		return nil, fmt.Errorf("expected comparison operator, got %q", t.text)
	}
	if op == "in" {
		list, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &cmpNode{left: left, op: op, right: list}, nil
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &cmpNode{left: left, op: op, right: right}, nil
}

// list = "[" literal ( "," literal )* "]"
func (p *condParser) parseList() (operand, error) {
	if p.peek().kind != condTokLBracket {
		return nil, fmt.Errorf("expected list after in, got %q", p.peek().text)
	}
	p.next()
	var items []any
	for {
		if p.peek().kind == condTokRBracket {
			p.next()
			return &listOperand{items: items}, nil
		}
		if len(items) > 0 {
			if p.peek().kind != condTokComma {
				return nil, fmt.Errorf("expected comma in list, got %q", p.peek().text)
			}
			p.next()
		}
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		items = append(items, lit)
	}
}

func (p *condParser) parseLiteral() (any, error) {
	t := p.next()
	switch t.kind {
	case condTokString:
		return t.text, nil
	case condTokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.text)
		}
		return f, nil
	case condTokBool:
		return t.text == "true", nil
	default:
		return nil, fmt.Errorf("expected literal in list, got %q", t.text)
	}
}

func (p *condParser) parseOperand() (operand, error) {
	t := p.peek()
	switch t.kind {
	case condTokString, condTokNumber, condTokBool:
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &literalOperand{v: v}, nil
	case condTokWord:
		p.next()
		path := strings.Split(t.text, ".")
		if len(path) != 2 || path[0] == "" || path[1] == "" {
			return nil, fmt.Errorf("field reference must be section.name, got %q", t.text)
		}
		return &fieldOperand{path: path}, nil
	default:
		return nil, fmt.Errorf("expected operand, got %q", t.text)
	}
}
