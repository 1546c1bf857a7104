package domain

import (
	"errors"
	"testing"
)

func evalCond(t *testing.T, text string, ns Namespace) bool {
	t.Helper()
	cond, err := ParseCondition(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	ok, err := cond.Eval(ns)
	if err != nil {
		t.Fatalf("eval %q: %v", text, err)
	}
	return ok
}

func testNamespace() Namespace {
	return Namespace{
		"findings": {
			"transaction_count": 5,
			"total_amount":      33000.0,
			"match_score":       0.92,
			"is_business_cycle": false,
		},
		"context": {
			"kyc_risk":   "HIGH",
			"occupation": "teacher",
		},
	}
}

func TestConditionComparisons(t *testing.T) {
	ns := testNamespace()
	if !evalCond(t, "findings.transaction_count >= 5", ns) {
		t.Error("expected >= to match")
	}
	if evalCond(t, "findings.transaction_count > 5", ns) {
		t.Error("expected > to not match")
	}
	if !evalCond(t, "findings.total_amount > 25000", ns) {
		t.Error("expected numeric compare across int literal and float field")
	}
	if !evalCond(t, "context.kyc_risk == 'HIGH'", ns) {
		t.Error("expected string equality")
	}
	if !evalCond(t, "context.kyc_risk != 'LOW'", ns) {
		t.Error("expected string inequality")
	}
	if !evalCond(t, "findings.is_business_cycle == false", ns) {
		t.Error("expected bool equality")
	}
	if !evalCond(t, "findings.match_score >= 0.90", ns) {
		t.Error("expected float compare")
	}
}

func TestConditionBooleanOperators(t *testing.T) {
	ns := testNamespace()
	if !evalCond(t, "findings.transaction_count >= 5 AND findings.total_amount > 25000 AND context.kyc_risk == 'HIGH'", ns) {
		t.Error("expected AND chain to match")
	}
	if !evalCond(t, "findings.transaction_count > 100 OR context.kyc_risk == 'HIGH'", ns) {
		t.Error("expected OR to match on right side")
	}
	if !evalCond(t, "NOT findings.is_business_cycle == true", ns) {
		t.Error("expected NOT to invert")
	}
	// AND 优先于 OR
	if !evalCond(t, "findings.transaction_count > 100 OR findings.transaction_count == 5 AND context.kyc_risk == 'HIGH'", ns) {
		t.Error("expected AND to bind tighter than OR")
	}
	if evalCond(t, "(findings.transaction_count > 100 OR findings.transaction_count == 5) AND context.kyc_risk == 'LOW'", ns) {
		t.Error("expected parentheses to regroup")
	}
}

func TestConditionMembership(t *testing.T) {
	ns := testNamespace()
	if !evalCond(t, "context.occupation in ['teacher', 'student', 'clerk']", ns) {
		t.Error("expected membership to match")
	}
	if evalCond(t, "context.occupation in ['jeweler', 'goldsmith']", ns) {
		t.Error("expected membership to not match")
	}
	if !evalCond(t, "findings.transaction_count in [3, 5, 7]", ns) {
		t.Error("expected numeric membership")
	}
	if !evalCond(t, "context.kyc_risk contains 'HIGH'", ns) {
		t.Error("expected contains to match")
	}
}

func TestConditionParseRejectsInvalidSyntax(t *testing.T) {
	bad := []string{
		"",
		"findings.x +",
		"findings.amount * 2 > 10",
		"findings.amount >",
		"(findings.amount > 10",
		"findings.amount > 10 extra",
		"amount > 10",                 // 字段必须带段前缀
		"findings.amount in 5",       // in 右侧必须是列表
		"findings.amount in [5, ]x",  // 列表语法错误
		"findings.amount ~= 5",
	}
	for _, text := range bad {
		if _, err := ParseCondition(text); err == nil {
			t.Errorf("expected parse of %q to fail", text)
		} else if !errors.Is(err, ErrConfiguration) {
			t.Errorf("parse error for %q should wrap ErrConfiguration, got %v", text, err)
		}
	}
}

func TestConditionEvalFailsClosedOnMissingField(t *testing.T) {
	cond, err := ParseCondition("findings.no_such_field == true")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := cond.Eval(testNamespace()); err == nil {
		t.Fatal("expected missing field to be an error, not false")
	}
}

func TestConditionEvalFailsClosedOnTypeMismatch(t *testing.T) {
	cond, err := ParseCondition("context.kyc_risk > 10")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := cond.Eval(testNamespace()); err == nil {
		t.Fatal("expected numeric compare on string to be an error")
	}
}

func TestConditionEvalAfterJSONRoundTrip(t *testing.T) {
	// 决议重放路径：JSON 反序列化后的数值统一是 float64。
	ns := Namespace{
		"findings": {"transaction_count": float64(5), "total_amount": float64(33000)},
		"context":  {"kyc_risk": "HIGH"},
	}
	if !evalCond(t, "findings.transaction_count >= 5 AND findings.total_amount > 25000", ns) {
		t.Error("expected float64 fields from JSON to compare like ints")
	}
}
