package ecpay

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/contentswap/contentswap/internal/pkg/env"
)

const (
	// StageCheckoutURL is the gateway's sandbox AIO endpoint.
	StageCheckoutURL = "https://payment-stage.ecpay.com.tw/Cashier/AioCheckOut/V5"
	// ProductionCheckoutURL is the gateway's production AIO endpoint.
	ProductionCheckoutURL = "https://payment.ecpay.com.tw/Cashier/AioCheckOut/V5"

	tradeNoPrefix = "CSP"
	tradeNoMaxLen = 20

	// merchantTradeDateLayout is the gateway's required timestamp format.
	merchantTradeDateLayout = "2006/01/02 15:04:05"
)

// Client carries the merchant credentials and callback endpoints for the
// ECPay all-in-one checkout.
type Client struct {
	MerchantID  string
	HashKey     string
	HashIV      string
	CheckoutURL string
	// ReturnURL receives the server-to-server payment result.
	ReturnURL string
	// OrderResultURL receives the browser after payment completes.
	OrderResultURL string
	// ClientBackURL is where the gateway's back button points.
	ClientBackURL string
}

// NewClientFromEnv builds a client from the ECPAY_* environment. Without
// explicit credentials the well-known sandbox merchant is used, which only
// ever succeeds against the staging endpoint.
func NewClientFromEnv() *Client {
	publicURL := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080")
	checkoutURL := StageCheckoutURL
	if !env.IsDev() && env.GetEnv("ECPAY_SANDBOX", "false") != "true" {
		checkoutURL = ProductionCheckoutURL
	}
	return &Client{
		MerchantID:     env.GetEnv("ECPAY_MERCHANT_ID", "2000132"),
		HashKey:        env.GetEnv("ECPAY_HASH_KEY", "5294y06JbISpM5x9"),
		HashIV:         env.GetEnv("ECPAY_HASH_IV", "v77hoKGq4kWxNNIS"),
		CheckoutURL:    checkoutURL,
		ReturnURL:      publicURL + "/api/v1/payment/callback",
		OrderResultURL: publicURL + "/api/v1/payment/return",
		ClientBackURL:  publicURL + "/pricing",
	}
}

// GenerateTradeNo builds a merchant trade number from the current unix
// millisecond clock plus a random 3-digit suffix, truncated to the
// gateway's 20 character maximum.
func GenerateTradeNo() string {
	no := fmt.Sprintf("%s%d%03d", tradeNoPrefix, time.Now().UnixMilli(), rand.Intn(1000))
	if len(no) > tradeNoMaxLen {
		no = no[:tradeNoMaxLen]
	}
	return no
}

// CheckoutForm is a signed set of form fields the browser auto-posts to the
// gateway's checkout endpoint.
type CheckoutForm struct {
	Action string
	Fields map[string]string
}

// CheckoutParams describes one checkout to create.
type CheckoutParams struct {
	TradeNo     string
	TotalAmount int
	TradeDesc   string
	ItemName    string
	// Plan and UserID travel through the gateway's custom fields and come
	// back unchanged in the payment callback.
	Plan   string
	UserID uint
}

// CreateCheckout signs the order fields for the gateway's credit card flow.
func (c *Client) CreateCheckout(p CheckoutParams) *CheckoutForm {
	fields := map[string]string{
		"MerchantID":        c.MerchantID,
		"MerchantTradeNo":   p.TradeNo,
		"MerchantTradeDate": time.Now().Format(merchantTradeDateLayout),
		"PaymentType":       "aio",
		"TotalAmount":       strconv.Itoa(p.TotalAmount),
		"TradeDesc":         p.TradeDesc,
		"ItemName":          p.ItemName,
		"ReturnURL":         c.ReturnURL,
		"OrderResultURL":    c.OrderResultURL,
		"ClientBackURL":     c.ClientBackURL,
		"ChoosePayment":     "Credit",
		"EncryptType":       "1",
		"CustomField1":      p.Plan,
		"CustomField2":      strconv.FormatUint(uint64(p.UserID), 10),
	}
	fields["CheckMacValue"] = GenerateCheckMacValue(fields, c.HashKey, c.HashIV)
	return &CheckoutForm{
		Action: c.CheckoutURL,
		Fields: fields,
	}
}

// CallbackResult is the parsed server-to-server payment notification.
type CallbackResult struct {
	MerchantID      string
	MerchantTradeNo string
	RtnCode         string
	RtnMsg          string
	TradeNo         string
	TradeAmt        string
	PaymentDate     string
	PaymentType     string
	Plan            string
	UserID          string
	SignatureValid  bool
	Raw             map[string]string
}

// Succeeded reports whether the gateway marked the payment as completed.
// RtnCode 1 is the only success code.
func (r *CallbackResult) Succeeded() bool {
	return r.RtnCode == "1"
}

// ParseResult verifies and decodes a callback's form fields. The signature
// verdict lands in SignatureValid; callers must reject invalid results
// without mutating any subscription state.
func (c *Client) ParseResult(form map[string]string) *CallbackResult {
	return &CallbackResult{
		MerchantID:      form["MerchantID"],
		MerchantTradeNo: form["MerchantTradeNo"],
		RtnCode:         form["RtnCode"],
		RtnMsg:          form["RtnMsg"],
		TradeNo:         form["TradeNo"],
		TradeAmt:        form["TradeAmt"],
		PaymentDate:     form["PaymentDate"],
		PaymentType:     form["PaymentType"],
		Plan:            form["CustomField1"],
		UserID:          form["CustomField2"],
		SignatureValid:  VerifyCheckMacValue(form, c.HashKey, c.HashIV),
		Raw:             form,
	}
}
