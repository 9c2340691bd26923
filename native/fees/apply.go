package fees

import "math/big"

// BpsDenominator is the basis-point scale: 10,000 bps equal 100%.
const BpsDenominator = 10_000

// Quote summarises the fee split computed for a gross settlement amount.
type Quote struct {
	Gross *big.Int
	Fee   *big.Int
	Net   *big.Int
}

// Split computes the platform fee for the gross amount at the supplied rate.
// The fee is truncated toward zero so Fee + Net always equals Gross exactly;
// truncation favours the payee. Non-positive gross amounts yield a zero fee.
func Split(gross *big.Int, feeBps uint32) Quote {
	quote := Quote{Gross: big.NewInt(0), Fee: big.NewInt(0), Net: big.NewInt(0)}
	if gross == nil {
		return quote
	}
	quote.Gross = new(big.Int).Set(gross)
	quote.Net = new(big.Int).Set(gross)
	if gross.Sign() <= 0 || feeBps == 0 {
		return quote
	}
	fee := new(big.Int).Mul(gross, big.NewInt(int64(feeBps)))
	fee = fee.Div(fee, big.NewInt(BpsDenominator))
	if fee.Sign() <= 0 {
		return quote
	}
	if fee.Cmp(quote.Net) >= 0 {
		quote.Fee = new(big.Int).Set(quote.Net)
		quote.Net = big.NewInt(0)
		return quote
	}
	quote.Fee = fee
	quote.Net = new(big.Int).Sub(quote.Net, fee)
	return quote
}
