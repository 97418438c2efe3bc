package fm

const (
	// NumOperators is the operator count of every voice.
	NumOperators = 6
	// NumAlgorithms is the size of the routing table.
	NumAlgorithms = 32

	noSource int8 = -1
)

// OpRoute lists the slots modulating one operator slot. Unused entries hold -1.
type OpRoute struct {
	Sources [3]int8
	Carrier bool
}

// Route is one algorithm: the wiring of all six slots and the carrier gain.
// Sources always refer to higher-numbered slots, so processing 5 down to 0
// has every modulator ready before it is read.
type Route struct {
	Ops           [NumOperators]OpRoute
	Normalization float64
	// FeedbackSlot is the operator that carries the program's feedback.
	FeedbackSlot int
}

// carrier gain per carrier count, 1/sqrt(n) with a single carrier held at 0.707
var carrierGain = [NumOperators + 1]float64{0, 0.707, 0.707, 0.577, 0.5, 0.447, 0.408}

func mod(src ...int8) OpRoute {
	r := OpRoute{Sources: [3]int8{noSource, noSource, noSource}}
	copy(r.Sources[:], src)
	return r
}

func car(src ...int8) OpRoute {
	r := mod(src...)
	r.Carrier = true
	return r
}

func route(fb int, ops ...OpRoute) Route {
	r := Route{FeedbackSlot: fb}
	copy(r.Ops[:], ops)
	r.Normalization = carrierGain[r.CarrierCount()]
	return r
}

// Slots are listed 0..5; slot 0 is OP1.
var routes = [NumAlgorithms]Route{
	// 1-2: 6>5>4>3, 2>1
	route(5, car(1), mod(), car(3), mod(4), mod(5), mod()),
	route(1, car(1), mod(), car(3), mod(4), mod(5), mod()),
	// 3-4: 6>5>4, 3>2>1
	route(5, car(1), mod(2), mod(), car(4), mod(5), mod()),
	route(5, car(1), mod(2), mod(), car(4), mod(5), mod()),
	// 5-6: three pairs
	route(5, car(1), mod(), car(3), mod(), car(5), mod()),
	route(5, car(1), mod(), car(3), mod(), car(5), mod()),
	// 7-9: 6>5, (5+4)>3, 2>1
	route(5, car(1), mod(), car(3, 4), mod(), mod(5), mod()),
	route(3, car(1), mod(), car(3, 4), mod(), mod(5), mod()),
	route(1, car(1), mod(), car(3, 4), mod(), mod(5), mod()),
	// 10-11: (6+5)>4, 3>2>1
	route(2, car(1), mod(2), mod(), car(4, 5), mod(), mod()),
	route(5, car(1), mod(2), mod(), car(4, 5), mod(), mod()),
	// 12-13: (6+5+4)>3, 2>1
	route(1, car(1), mod(), car(3, 4, 5), mod(), mod(), mod()),
	route(5, car(1), mod(), car(3, 4, 5), mod(), mod(), mod()),
	// 14-15: (6+5)>4>3, 2>1
	route(5, car(1), mod(), car(3), mod(4, 5), mod(), mod()),
	route(1, car(1), mod(), car(3), mod(4, 5), mod(), mod()),
	// 16-17: 6>5, 4>3, (5+3+2)>1
	route(5, car(1, 2, 4), mod(), mod(3), mod(), mod(5), mod()),
	route(1, car(1, 2, 4), mod(), mod(3), mod(), mod(5), mod()),
	// 18: 6>5>4, (4+3+2)>1
	route(2, car(1, 2, 3), mod(), mod(), mod(4), mod(5), mod()),
	// 19: 6>(5,4), 3>2>1
	route(5, car(1), mod(2), mod(), car(5), car(5), mod()),
	// 20: (6+5)>4, 3>(2,1)
	route(2, car(2), car(2), mod(), car(4, 5), mod(), mod()),
	// 21: 6>(5,4), 3>(2,1)
	route(2, car(2), car(2), mod(), car(5), car(5), mod()),
	// 22: 6>(5,4,3), 2>1
	route(5, car(1), mod(), car(5), car(5), car(5), mod()),
	// 23: 6>(5,4), 3>2, 1
	route(5, car(), car(2), mod(), car(5), car(5), mod()),
	// 24: 6>(5,4,3), 2, 1
	route(5, car(), car(), car(5), car(5), car(5), mod()),
	// 25: 6>(5,4), 3, 2, 1
	route(5, car(), car(), car(), car(5), car(5), mod()),
	// 26-27: (6+5)>4, 3>2, 1
	route(5, car(), car(2), mod(), car(4, 5), mod(), mod()),
	route(2, car(), car(2), mod(), car(4, 5), mod(), mod()),
	// 28: 6, 5>4>3, 2>1
	route(4, car(1), mod(), car(3), mod(4), mod(), car()),
	// 29: 6>5, 4>3, 2, 1
	route(5, car(), car(), car(3), mod(), car(5), mod()),
	// 30: 6, 5>4>3, 2, 1
	route(4, car(), car(), car(3), mod(4), mod(), car()),
	// 31: 6>5, 4, 3, 2, 1
	route(5, car(), car(), car(), car(), car(5), mod()),
	// 32: all carriers
	route(5, car(), car(), car(), car(), car(), car()),
}

// Algorithm returns the routing for index, clamped to 0..31.
func Algorithm(index int) Route {
	return routes[clampInt(index, 0, NumAlgorithms-1)]
}

// FeedbackSlot returns the operator slot designated for feedback in the algorithm.
func FeedbackSlot(index int) int {
	return routes[clampInt(index, 0, NumAlgorithms-1)].FeedbackSlot
}

// CarrierCount reports how many slots of the route are summed into the output.
func (r Route) CarrierCount() int {
	n := 0
	for _, op := range r.Ops {
		if op.Carrier {
			n++
		}
	}
	return n
}
