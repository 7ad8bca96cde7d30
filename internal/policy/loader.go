package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

func LoadFromFile(path string) (*Bundle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bundle Bundle
	if err := yaml.Unmarshal(b, &bundle); err != nil {
		return nil, err
	}
	if err := Validate(&bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Validate checks structural well-formedness. Bindings referencing a
// role that does not exist are accepted: dangling references are inert,
// not erroneous.
func Validate(b *Bundle) error {
	if strings.TrimSpace(b.APIVersion) == "" {
		return fmt.Errorf("policy: apiVersion missing")
	}
	if strings.TrimSpace(b.Kind) == "" {
		return fmt.Errorf("policy: kind missing")
	}

	roleKeys := map[string]struct{}{}
	for _, r := range b.Roles {
		if err := ValidateRole(&r); err != nil {
			return err
		}
		k := r.Namespace + "/" + r.Name
		if _, ok := roleKeys[k]; ok {
			return fmt.Errorf("policy: duplicate role %q", k)
		}
		roleKeys[k] = struct{}{}
	}

	clusterRoleNames := map[string]struct{}{}
	for _, cr := range b.ClusterRoles {
		if err := ValidateClusterRole(&cr); err != nil {
			return err
		}
		if _, ok := clusterRoleNames[cr.Name]; ok {
			return fmt.Errorf("policy: duplicate cluster role %q", cr.Name)
		}
		clusterRoleNames[cr.Name] = struct{}{}
	}

	bindingKeys := map[string]struct{}{}
	for _, rb := range b.RoleBindings {
		if err := ValidateRoleBinding(&rb); err != nil {
			return err
		}
		k := rb.Namespace + "/" + rb.Name
		if _, ok := bindingKeys[k]; ok {
			return fmt.Errorf("policy: duplicate role binding %q", k)
		}
		bindingKeys[k] = struct{}{}
	}

	crbNames := map[string]struct{}{}
	for _, crb := range b.ClusterRoleBindings {
		if err := ValidateClusterRoleBinding(&crb); err != nil {
			return err
		}
		if _, ok := crbNames[crb.Name]; ok {
			return fmt.Errorf("policy: duplicate cluster role binding %q", crb.Name)
		}
		crbNames[crb.Name] = struct{}{}
	}

	return nil
}

func ValidateRole(r *Role) error {
	if r.Name == "" {
		return fmt.Errorf("policy: role name missing")
	}
	if r.Namespace == "" {
		return fmt.Errorf("policy: role %q namespace missing", r.Name)
	}
	return nil
}

func ValidateClusterRole(cr *ClusterRole) error {
	if cr.Name == "" {
		return fmt.Errorf("policy: cluster role name missing")
	}
	return nil
}

func ValidateRoleBinding(rb *RoleBinding) error {
	if rb.Name == "" {
		return fmt.Errorf("policy: role binding name missing")
	}
	if rb.Namespace == "" {
		return fmt.Errorf("policy: role binding %q namespace missing", rb.Name)
	}
	if err := validateRoleRef(rb.RoleRef, rb.Name); err != nil {
		return err
	}
	return validateSubjects(rb.Subjects, rb.Name)
}

func ValidateClusterRoleBinding(crb *ClusterRoleBinding) error {
	if crb.Name == "" {
		return fmt.Errorf("policy: cluster role binding name missing")
	}
	if crb.RoleRef.Kind != RoleRefKindClusterRole {
		return fmt.Errorf("policy: cluster role binding %q must reference a ClusterRole", crb.Name)
	}
	if crb.RoleRef.Name == "" {
		return fmt.Errorf("policy: binding %q roleRef name missing", crb.Name)
	}
	return validateSubjects(crb.Subjects, crb.Name)
}

func validateRoleRef(ref RoleRef, binding string) error {
	if ref.Kind != RoleRefKindRole && ref.Kind != RoleRefKindClusterRole {
		return fmt.Errorf("policy: binding %q has invalid roleRef kind %q", binding, ref.Kind)
	}
	if ref.Name == "" {
		return fmt.Errorf("policy: binding %q roleRef name missing", binding)
	}
	return nil
}

func validateSubjects(subjects []Subject, binding string) error {
	for _, s := range subjects {
		switch s.Kind {
		case "ServiceAccount":
			if s.Namespace == "" {
				return fmt.Errorf("policy: binding %q has ServiceAccount subject %q without namespace", binding, s.Name)
			}
		case "User", "Group":
		default:
			return fmt.Errorf("policy: binding %q has invalid subject kind %q", binding, s.Kind)
		}
		if s.Name == "" {
			return fmt.Errorf("policy: binding %q has subject with empty name", binding)
		}
	}
	return nil
}
