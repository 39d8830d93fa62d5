package extract

import (
	"regexp"

	"github.com/rs/zerolog"

	"github.com/creditsphere/creditsphere/internal/domain"
)

// Identification is the best-effort result of reading bank markers out
// of statement text. Any field may be empty when no pattern matched.
type Identification struct {
	Institution   string
	AccountType   domain.AccountType
	AccountNumber string
}

type bankSignature struct {
	institution string
	patterns    []*regexp.Regexp
}

// bankSignatures are checked in order; the first institution with a
// matching pattern wins.
var bankSignatures = []bankSignature{
	{"CIBC", compileAll(
		`(?i)CIBC.*Account Statement`,
		`(?i)cibc\.com`,
		`(?i)CIBC Royal Bank`,
	)},
	{"RBC", compileAll(
		`(?i)RBC.*Visa`,
		`(?i)Royal Bank.*Canada`,
		`(?i)rbcroyalbank\.com`,
		`(?i)RBC Avion`,
	)},
	{"MBNA", compileAll(
		`(?i)MBNA.*Mastercard`,
		`(?i)mbna\.ca`,
		`(?i)TD MBNA`,
	)},
	{"PC Financial", compileAll(
		`(?i)President'?s Choice Financial`,
		`(?i)PC.*Mastercard`,
		`(?i)pcfinancial\.ca`,
		`(?i)PC Optimum`,
	)},
	{"TD", compileAll(
		`(?i)TD.*Bank`,
		`(?i)td\.com`,
	)},
	{"Scotiabank", compileAll(
		`(?i)Scotiabank`,
		`(?i)scotiabank\.com`,
	)},
	{"BMO", compileAll(
		`(?i)Bank of Montreal`,
		`(?i)BMO.*Mastercard`,
		`(?i)bmo\.com`,
	)},
}

type accountTypeSignature struct {
	accountType domain.AccountType
	patterns    []*regexp.Regexp
}

var accountTypeSignatures = []accountTypeSignature{
	{domain.AccountCreditCard, compileAll(
		`(?i)Credit Card`,
		`(?i)Mastercard`,
		`(?i)Visa`,
		`(?i)American Express`,
		`(?i)Amex`,
		`(?i)Card.*Statement`,
		`(?i)Annual Fee`,
		`(?i)Purchases.*Cash Advances`,
	)},
	{domain.AccountChecking, compileAll(
		`(?i)Chequing.*Account`,
		`(?i)Checking.*Account`,
		`(?i)Transaction.*Account`,
		`(?i)Current.*Account`,
	)},
	{domain.AccountSavings, compileAll(
		`(?i)Savings.*Account`,
		`(?i)TFSA`,
		`(?i)RRSP`,
	)},
}

// accountNumberPatterns pull the last four digits of a masked card or
// account number. Card masks come first because card statements often
// also print a plain account line.
var accountNumberPatterns = compileAll(
	`(?:\*{4}|\d{4})\s+(?:\d{2}\*{2})\s+\*{4}\s+(\d{4})`,
	`\*{4}[\s-]+\*{4}[\s-]+\*{4}[\s-]+(\d{4})`,
	`X{4}[\s-]+X{4}[\s-]+X{4}[\s-]+(\d{4})`,
	`\d{4}[\s-]+\*{4}[\s-]+\*{4}[\s-]+(\d{4})`,
	`(?i)Card.*?ending.*?(\d{4})`,
	`(?i)Card.*?number.*?\*+(\d{4})`,
	`Account[\s#:]+.*?(\d{4})(?:\D|$)`,
	`(?i)Account ending.*?(\d{4})`,
	`(?i)Acct.*?(\d{4})(?:\D|$)`,
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// IdentifyBank reads institution, account type, and masked account
// number markers out of statement text. It never fails: unmatched
// fields stay empty and the caller decides how to proceed.
func IdentifyBank(text string, log zerolog.Logger) Identification {
	var id Identification

	for _, sig := range bankSignatures {
		for _, p := range sig.patterns {
			if p.MatchString(text) {
				id.Institution = sig.institution
				break
			}
		}
		if id.Institution != "" {
			break
		}
	}

	for _, sig := range accountTypeSignatures {
		for _, p := range sig.patterns {
			if p.MatchString(text) {
				id.AccountType = sig.accountType
				break
			}
		}
		if id.AccountType != "" {
			break
		}
	}

	for _, p := range accountNumberPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			id.AccountNumber = m[1]
			break
		}
	}

	log.Debug().
		Str("institution", id.Institution).
		Str("account_type", string(id.AccountType)).
		Str("account_number", id.AccountNumber).
		Msg("identified statement source")
	return id
}
