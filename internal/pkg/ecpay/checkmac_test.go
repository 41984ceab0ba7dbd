package ecpay

import (
	"strings"
	"testing"
)

const (
	testHashKey = "5294y06JbISpM5x9"
	testHashIV  = "v77hoKGq4kWxNNIS"
)

func sampleCallback() map[string]string {
	return map[string]string{
		"MerchantID":      "2000132",
		"MerchantTradeNo": "CSP17568000000001234",
		"RtnCode":         "1",
		"RtnMsg":          "Succeeded",
		"TradeNo":         "2509011230001234",
		"TradeAmt":        "890",
		"PaymentDate":     "2026/09/01 12:30:00",
		"PaymentType":     "Credit_CreditCard",
		"CustomField1":    "CREATOR",
		"CustomField2":    "7",
	}
}

func TestEcpayEscape(t *testing.T) {
	got := ecpayEscape("a b&c=d!~*'()")
	want := "a%20b%26c%3Dd!~*'()"
	if got != want {
		t.Errorf("ecpayEscape = %q, want %q", got, want)
	}
}

func TestDotNetAdjust(t *testing.T) {
	got := dotNetAdjust(strings.ToLower(ecpayEscape("a b&c=d!~*'()")))
	want := "a+b%26c%3dd%21~%2a%27%28%29"
	if got != want {
		t.Errorf("adjusted encoding = %q, want %q", got, want)
	}
}

func TestGenerateCheckMacValueShape(t *testing.T) {
	mac := GenerateCheckMacValue(sampleCallback(), testHashKey, testHashIV)
	if len(mac) != 64 {
		t.Fatalf("mac length = %d, want 64 hex chars", len(mac))
	}
	if mac != strings.ToUpper(mac) {
		t.Error("mac must be uppercase hex")
	}
}

func TestGenerateCheckMacValueDeterministic(t *testing.T) {
	a := GenerateCheckMacValue(sampleCallback(), testHashKey, testHashIV)
	b := GenerateCheckMacValue(sampleCallback(), testHashKey, testHashIV)
	if a != b {
		t.Errorf("same input produced different macs: %s vs %s", a, b)
	}
}

func TestGenerateCheckMacValueIgnoresOwnField(t *testing.T) {
	params := sampleCallback()
	base := GenerateCheckMacValue(params, testHashKey, testHashIV)
	params["CheckMacValue"] = "SOMETHING"
	if got := GenerateCheckMacValue(params, testHashKey, testHashIV); got != base {
		t.Error("CheckMacValue field must not feed its own computation")
	}
}

func TestVerifyCheckMacValueRoundTrip(t *testing.T) {
	params := sampleCallback()
	params["CheckMacValue"] = GenerateCheckMacValue(params, testHashKey, testHashIV)
	if !VerifyCheckMacValue(params, testHashKey, testHashIV) {
		t.Fatal("freshly signed params must verify")
	}
}

func TestVerifyCheckMacValueDetectsTampering(t *testing.T) {
	params := sampleCallback()
	params["CheckMacValue"] = GenerateCheckMacValue(params, testHashKey, testHashIV)

	// flip the amount by one character
	params["TradeAmt"] = "891"
	if VerifyCheckMacValue(params, testHashKey, testHashIV) {
		t.Fatal("tampered amount must fail verification")
	}
}

func TestVerifyCheckMacValueDetectsRtnCodeSwap(t *testing.T) {
	params := sampleCallback()
	params["CheckMacValue"] = GenerateCheckMacValue(params, testHashKey, testHashIV)

	params["RtnCode"] = "0"
	if VerifyCheckMacValue(params, testHashKey, testHashIV) {
		t.Fatal("flipping the result code must break the signature")
	}
}

func TestVerifyCheckMacValueWrongKey(t *testing.T) {
	params := sampleCallback()
	params["CheckMacValue"] = GenerateCheckMacValue(params, testHashKey, testHashIV)
	if VerifyCheckMacValue(params, "0000000000000000", testHashIV) {
		t.Fatal("signature from another key must not verify")
	}
}

func TestVerifyCheckMacValueMissingSignature(t *testing.T) {
	if VerifyCheckMacValue(sampleCallback(), testHashKey, testHashIV) {
		t.Fatal("params without CheckMacValue must not verify")
	}
}
