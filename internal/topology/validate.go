package topology

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violation is a single problem found in a topology.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationError wraps the full set of violations so callers can
// distinguish a malformed topology from a provisioning failure.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("topology validation failed with %d violation(s): %s",
		len(e.Violations), strings.Join(msgs, "; "))
}

var fieldValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the topology and returns every violation found, not just
// the first. An empty result means the topology is well-formed. Validate has
// no side effects.
func Validate(t *NetworkTopology) []Violation {
	var violations []Violation

	if err := fieldValidator.Struct(t); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				violations = append(violations, Violation{
					Field:   trimNamespace(fe.Namespace()),
					Message: fieldMessage(fe),
				})
			}
		} else {
			violations = append(violations, Violation{Field: "topology", Message: err.Error()})
		}
	}

	violations = append(violations, checkSubnetNames(t)...)
	violations = append(violations, checkSubnetRanges(t)...)

	return violations
}

// checkSubnetNames reports duplicate subnet names.
func checkSubnetNames(t *NetworkTopology) []Violation {
	var violations []Violation
	seen := make(map[string]bool, len(t.Subnets))
	for i, s := range t.Subnets {
		if s.Name == "" {
			continue // already reported by the required tag
		}
		if seen[s.Name] {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("Subnets[%d].Name", i),
				Message: fmt.Sprintf("subnet name %q is used more than once", s.Name),
			})
		}
		seen[s.Name] = true
	}
	return violations
}

// checkSubnetRanges reports subnets outside the VPC range and pairwise
// subnet overlaps. CIDRs that failed syntactic validation are skipped here
// so a malformed CIDR produces one violation, not a cascade.
func checkSubnetRanges(t *NetworkTopology) []Violation {
	var violations []Violation

	vpc, vpcErr := netip.ParsePrefix(t.CIDR)

	type parsedSubnet struct {
		name   string
		prefix netip.Prefix
	}
	var parsed []parsedSubnet

	for i, s := range t.Subnets {
		p, err := netip.ParsePrefix(s.CIDR)
		if err != nil {
			continue
		}
		if vpcErr == nil && !containsPrefix(vpc, p) {
			violations = append(violations, Violation{
				Field: fmt.Sprintf("Subnets[%d].CIDR", i),
				Message: fmt.Sprintf("subnet %q cidr %s is not contained in vpc cidr %s",
					s.Name, s.CIDR, t.CIDR),
			})
		}
		parsed = append(parsed, parsedSubnet{name: s.Name, prefix: p})
	}

	for i := 0; i < len(parsed); i++ {
		for j := i + 1; j < len(parsed); j++ {
			if parsed[i].prefix.Overlaps(parsed[j].prefix) {
				violations = append(violations, Violation{
					Field: "Subnets",
					Message: fmt.Sprintf("subnet %q cidr %s overlaps subnet %q cidr %s",
						parsed[i].name, parsed[i].prefix, parsed[j].name, parsed[j].prefix),
				})
			}
		}
	}

	return violations
}

// containsPrefix reports whether inner is fully contained in outer.
func containsPrefix(outer, inner netip.Prefix) bool {
	return inner.Bits() >= outer.Bits() && outer.Masked().Contains(inner.Masked().Addr())
}

// trimNamespace drops the root struct name from a validator namespace, so
// "NetworkTopology.Subnets[0].CIDR" becomes "Subnets[0].CIDR".
func trimNamespace(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "cidrv4":
		return fmt.Sprintf("%q is not a valid IPv4 CIDR", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q is not one of: %s", fe.Value(), fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must not be smaller than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
