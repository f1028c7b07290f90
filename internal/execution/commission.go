package execution

// CommissionPolicy derives the commission for a fill from its quantity and
// fill price when the venue does not report one.
type CommissionPolicy interface {
	Commission(quantity int, price float64) float64
}

// IBCommission models the Interactive Brokers US API directed-order fee
// schedule: per-share cost with a tier break at 500 shares, a flat minimum,
// and a cap at 0.5% of notional.
type IBCommission struct{}

// Commission implements CommissionPolicy.
func (IBCommission) Commission(quantity int, price float64) float64 {
	qty := float64(quantity)
	var cost float64
	if quantity <= 500 {
		cost = 0.013 * qty
	} else {
		cost = 0.008 * qty
	}
	if cost < 1.3 {
		cost = 1.3
	}
	if cap := 0.005 * qty * price; cost > cap {
		cost = cap
	}
	return cost
}

// FixedCommission charges a flat fee per fill regardless of size. A zero
// fee makes fills free, which keeps scenario tests exact.
type FixedCommission struct {
	Fee float64
}

// Commission implements CommissionPolicy.
func (f FixedCommission) Commission(int, float64) float64 { return f.Fee }
