package fixed

var (
	NegOne = FromInt(-1, 0)
	Zero   = FromInt(0, 0)
	One    = FromInt(1, 0)
	Two    = FromInt(2, 0)
	Three  = FromInt(3, 0)
	Four   = FromInt(4, 0)
	Five   = FromInt(5, 0)
	Ten    = FromInt(10, 0)

	Hundred = FromInt(100, 0)
	Half    = FromInt(5, 1)

	// Sqrt252 annualizes daily statistics over trading days.
	Sqrt252 = FromInt(252, 0).Sqrt()
)
