package model

import "strings"

// Capability names an optional evaluator a Model may carry beyond its
// log-density. The levels form a hierarchy: TensorDerivative presupposes
// Tensor, and Tensor presupposes Gradient.
type Capability uint8

// Capability constants - combined into a CapabilitySet bit mask
const (
	Gradient Capability = 1 << iota
	Tensor
	TensorDerivative
)

func (c Capability) String() string {
	switch c {
	case Gradient:
		return "gradient"
	case Tensor:
		return "tensor"
	case TensorDerivative:
		return "tensor-derivative"
	}
	return "unknown"
}

// CapabilitySet is a closed set of model capabilities. The zero value is the
// empty set.
type CapabilitySet uint8

// NewCapabilitySet combines the given capabilities into a set
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var cs CapabilitySet
	for _, c := range caps {
		cs |= CapabilitySet(c)
	}
	return cs
}

// Has returns true if the set contains the single given capability
func (cs CapabilitySet) Has(c Capability) bool {
	return cs&CapabilitySet(c) != 0
}

// Contains returns true if every capability in req is also in cs
func (cs CapabilitySet) Contains(req CapabilitySet) bool {
	return cs&req == req
}

// Missing returns the capabilities in req that are absent from cs, in
// hierarchy order.
func (cs CapabilitySet) Missing(req CapabilitySet) []Capability {
	var missing []Capability
	for _, c := range []Capability{Gradient, Tensor, TensorDerivative} {
		if req.Has(c) && !cs.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func (cs CapabilitySet) String() string {
	if cs == 0 {
		return "(none)"
	}

	names := make([]string, 0, 3)
	for _, c := range []Capability{Gradient, Tensor, TensorDerivative} {
		if cs.Has(c) {
			names = append(names, c.String())
		}
	}
	return strings.Join(names, "+")
}
