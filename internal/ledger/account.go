package ledger

// AccountType classifies an account. The numeric values are part of the
// WAL wire format (spec.md §6.2's acct_type field) and must not be
// reordered.
type AccountType uint32

const (
	Checking AccountType = iota
	Savings
	Investment
)

func (t AccountType) String() string {
	switch t {
	case Checking:
		return "checking"
	case Savings:
		return "savings"
	case Investment:
		return "investment"
	default:
		return "unknown"
	}
}

// ParseAccountType maps a lowercase name to its AccountType, defaulting to
// Checking for anything unrecognized (matching the original CLI's
// parse_type, which never rejects an account type).
func ParseAccountType(s string) AccountType {
	switch s {
	case "savings":
		return Savings
	case "investment":
		return Investment
	default:
		return Checking
	}
}

// currencyLen is the fixed width of the currency field, null-padded ASCII.
const currencyLen = 4

// CashAccountID is the reserved id for the cash reserve: the counterparty
// for every deposit and withdrawal, and the only account allowed a
// negative balance.
const CashAccountID uint32 = 0

// DefaultCurrency is used wherever a caller doesn't specify one.
const DefaultCurrency = "USD"

// Account is a by-value snapshot of one ledger account. Store methods
// return copies; mutating a returned Account has no effect on the store.
type Account struct {
	ID           uint32
	Type         AccountType
	Currency     [currencyLen]byte
	BalanceCents int64
	Version      uint64
}

// CurrencyString returns the currency field with trailing NUL padding
// trimmed.
func (a Account) CurrencyString() string {
	n := len(a.Currency)
	for n > 0 && a.Currency[n-1] == 0 {
		n--
	}
	return string(a.Currency[:n])
}

func encodeCurrency(s string) [currencyLen]byte {
	var out [currencyLen]byte
	copy(out[:], s)
	return out
}
