// Package parser turns raw M-PESA provider messages into structured
// transactions. Recognition is a fixed, ordered list of pattern rules;
// the first rule that matches wins and a message is never run through a
// second rule's extraction.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/core"
)

// Pattern building blocks shared by every rule. The confirmation-code
// prefix and the date/time portion are optional: some provider variants
// omit them, and a missing date resolves to the receipt timestamp.
const (
	reCode    = `(?:(?P<code>[A-Z0-9]+)\s+Confirmed[.,]?\s*)?`
	reAmount  = `(?i:ksh)\s*(?P<amount>[\d,]+(?:\.\d+)?)`
	reWhen    = `(?:\s+on\s+(?P<date>\d{1,2}/\d{1,2}/\d{2})\s+at\s+(?P<time>\d{1,2}:\d{2}\s*[AP]M))?`
	reBalance = `[.,]?\s*New\s+(?:M-PESA\s+)?balance\s+is\s+(?i:ksh)\s*(?P<balance>[\d,]+(?:\.\d+)?)`
)

type rule struct {
	txType core.TxType
	re     *regexp.Regexp
}

// Rules are tried top to bottom; order is part of the contract. The
// distinguishing keywords ("sent to", "received from", "paid to",
// "withdrawn from", "bought ... airtime") keep the rules mutually
// exclusive, so the order only decides ties that should never occur.
var rules = []rule{
	{core.TypeSent, regexp.MustCompile(
		reCode + reAmount + `\s+sent\s+to\s+(?P<name>.+?)` + reWhen + reBalance)},
	{core.TypeReceived, regexp.MustCompile(
		reCode + `You\s+have\s+received\s+` + reAmount + `\s+from\s+(?P<name>.+?)` + reWhen + reBalance)},
	{core.TypePayment, regexp.MustCompile(
		reCode + reAmount + `\s+paid\s+to\s+(?P<name>.+?)` + reWhen + reBalance)},
	{core.TypeWithdrawal, regexp.MustCompile(
		reCode + reAmount + `\s+withdrawn\s+from\s+(?P<name>.+?)` + reWhen + reBalance)},
	{core.TypeAirtime, regexp.MustCompile(
		reCode + `You\s+bought\s+` + reAmount + `\s+of\s+airtime` + reWhen + reBalance)},
}

// AirtimeCounterparty is the fixed recipient recorded for airtime
// purchases, which carry no counterparty of their own.
const AirtimeCounterparty = "Safaricom"

// Parse extracts a transaction from one provider message. It returns
// nil when no rule matches; non-transactional traffic (ads, OTPs) is
// expected and not an error. fallbackTimestamp is the device receipt
// time in Unix milliseconds, used when the message carries no parseable
// date of its own.
func Parse(message string, fallbackTimestamp int64) *core.Transaction {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(message)
		if m == nil {
			continue
		}

		group := func(name string) string {
			idx := r.re.SubexpIndex(name)
			if idx < 0 || idx >= len(m) {
				return ""
			}
			return strings.TrimSpace(m[idx])
		}

		amount, err := core.ParseAmount(group("amount"))
		if err != nil {
			// Matched shape but unusable number: treat as no match.
			return nil
		}
		balance, err := core.ParseAmount(group("balance"))
		if err != nil {
			return nil
		}
		counterparty := strings.TrimSuffix(group("name"), ".")
		if r.txType == core.TypeAirtime {
			counterparty = AirtimeCounterparty
		}

		tx := &core.Transaction{
			Type:            r.txType,
			Amount:          amount,
			Balance:         balance,
			TransactionCode: group("code"),
			Date:            resolveDate(group("date"), group("time"), fallbackTimestamp),
			RawMessage:      message,
		}
		if r.txType.Inbound() {
			tx.Sender = counterparty
		} else {
			tx.Recipient = counterparty
		}
		tx.Category = Categorize(tx.Type, counterparty)
		return tx
	}
	return nil
}

// resolveDate converts the provider's day/month/2-digit-year date and
// 12-hour clock time to an absolute local timestamp. Any missing or
// malformed portion falls back to the receipt timestamp; this is the
// defined recovery path and never fails.
func resolveDate(dateStr, timeStr string, fallbackTimestamp int64) time.Time {
	fallback := time.UnixMilli(fallbackTimestamp)
	if dateStr == "" || timeStr == "" {
		return fallback
	}

	dateParts := strings.Split(dateStr, "/")
	if len(dateParts) != 3 {
		return fallback
	}
	day, err1 := strconv.Atoi(dateParts[0])
	month, err2 := strconv.Atoi(dateParts[1])
	yy, err3 := strconv.Atoi(dateParts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return fallback
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return fallback
	}

	clock, period, ok := splitClock(timeStr)
	if !ok {
		return fallback
	}
	hhmm := strings.Split(clock, ":")
	if len(hhmm) != 2 {
		return fallback
	}
	hours, err1 := strconv.Atoi(hhmm[0])
	minutes, err2 := strconv.Atoi(hhmm[1])
	if err1 != nil || err2 != nil || hours < 1 || hours > 12 || minutes < 0 || minutes > 59 {
		return fallback
	}
	if period == "PM" && hours != 12 {
		hours += 12
	}
	if period == "AM" && hours == 12 {
		hours = 0
	}

	return time.Date(2000+yy, time.Month(month), day, hours, minutes, 0, 0, time.Local)
}

// splitClock separates "2:45 PM" (or "2:45PM") into clock and period.
func splitClock(s string) (clock, period string, ok bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, p := range []string{"AM", "PM"} {
		if strings.HasSuffix(s, p) {
			return strings.TrimSpace(strings.TrimSuffix(s, p)), p, true
		}
	}
	return "", "", false
}
