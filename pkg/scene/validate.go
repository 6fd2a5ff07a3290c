package scene

import "fmt"

// ValidationSeverity indicates whether a finding blocks further processing
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks processing
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   string
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, short(e.NodeID), e.Message)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Validate runs the structural checks over the trees under roots and returns
// every finding. An empty slice means the scene is valid. It never mutates
// the scene.
func Validate(roots ...*Node) []ValidationError {
	var errs []ValidationError
	cycle := validateAcyclic(roots)
	errs = append(errs, cycle...)
	if len(cycle) > 0 {
		// The remaining checks walk the tree and would not terminate.
		return errs
	}
	errs = append(errs, validateLinks(roots)...)
	errs = append(errs, validateIDs(roots)...)
	errs = append(errs, validateMeshes(roots)...)
	errs = append(errs, validateOwners(roots)...)
	return errs
}

// validateAcyclic checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = on the current path, black (2) = done.
func validateAcyclic(roots []*Node) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Node]int)
	var errs []ValidationError

	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		switch color[n] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("cycle detected: %s is its own ancestor", n),
				Severity: SeverityError,
			})
			return true
		}
		color[n] = gray
		for _, c := range n.children {
			if visit(c) {
				return true
			}
		}
		color[n] = black
		return false
	}

	for _, r := range roots {
		if r != nil && visit(r) {
			break
		}
	}
	return errs
}

// validateLinks checks that every child points back at the parent that owns it.
func validateLinks(roots []*Node) []ValidationError {
	var errs []ValidationError
	for n := range AllNodes(roots...) {
		for _, c := range n.children {
			if c.parent != n {
				errs = append(errs, ValidationError{
					NodeID:   c.ID,
					Message:  fmt.Sprintf("listed as child of %s but parent link differs", n),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

func validateIDs(roots []*Node) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int)
	for n := range AllNodes(roots...) {
		if n.ID == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("%s has an empty ID", n),
				Severity: SeverityError,
			})
			continue
		}
		seen[n.ID]++
		if seen[n.ID] == 2 {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  "duplicate node ID",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateMeshes checks mesh indices and the mesh-with-children state, which
// is only legal on difference wrappers.
func validateMeshes(roots []*Node) []ValidationError {
	var errs []ValidationError
	for n := range AllNodes(roots...) {
		m := n.Mesh()
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  err.Error(),
				Severity: SeverityError,
			})
		}
		if len(n.children) > 0 && n.Kind != KindDifferenceItem {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("%s has both a mesh and %d children", n, len(n.children)),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateOwners checks that owner tags only appear inside a difference
// container carrying the same tag.
func validateOwners(roots []*Node) []ValidationError {
	var errs []ValidationError
	for n := range AllNodes(roots...) {
		if n.Kind == KindDifference {
			if n.OwnerID == "" {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  "difference container has no owner ID",
					Severity: SeverityError,
				})
			}
			continue
		}
		if n.OwnerID == "" {
			continue
		}
		owned := false
		for p := n.parent; p != nil; p = p.parent {
			if p.Kind == KindDifference && p.OwnerID == n.OwnerID {
				owned = true
				break
			}
		}
		if !owned {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("owner ID %s outside its difference group", short(n.OwnerID)),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
