package policy

// Rule grants a set of verbs on a set of resources. Empty fields grant
// nothing; "*" matches any value within its field. An empty
// ResourceNames list applies to all names of the matched resources.
type Rule struct {
	APIGroups     []string `yaml:"apiGroups" json:"apiGroups"`
	Resources     []string `yaml:"resources" json:"resources"`
	Verbs         []string `yaml:"verbs" json:"verbs"`
	ResourceNames []string `yaml:"resourceNames,omitempty" json:"resourceNames,omitempty"`
}

// Role is a namespace-scoped set of rules.
type Role struct {
	Name      string `yaml:"name" json:"name"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Rules     []Rule `yaml:"rules" json:"rules"`
}

// ClusterRole is a cluster-scoped set of rules.
type ClusterRole struct {
	Name  string `yaml:"name" json:"name"`
	Rules []Rule `yaml:"rules" json:"rules"`
}

// Subject names an identity a binding applies to. ServiceAccount
// subjects carry a namespace; User and Group subjects do not.
type Subject struct {
	Kind      string `yaml:"kind" json:"kind"`
	Name      string `yaml:"name" json:"name"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// RoleRef points a binding at exactly one Role or ClusterRole.
type RoleRef struct {
	Kind string `yaml:"kind" json:"kind"`
	Name string `yaml:"name" json:"name"`
}

// RoleBinding grants its role's rules within its own namespace.
type RoleBinding struct {
	Name      string    `yaml:"name" json:"name"`
	Namespace string    `yaml:"namespace" json:"namespace"`
	Subjects  []Subject `yaml:"subjects" json:"subjects"`
	RoleRef   RoleRef   `yaml:"roleRef" json:"roleRef"`
}

// ClusterRoleBinding grants a ClusterRole's rules in every namespace.
type ClusterRoleBinding struct {
	Name     string    `yaml:"name" json:"name"`
	Subjects []Subject `yaml:"subjects" json:"subjects"`
	RoleRef  RoleRef   `yaml:"roleRef" json:"roleRef"`
}

// Bundle is the on-disk policy document.
type Bundle struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Metadata   struct {
		Name string `yaml:"name"`
	} `yaml:"metadata"`

	Roles               []Role               `yaml:"roles"`
	ClusterRoles        []ClusterRole        `yaml:"clusterRoles"`
	RoleBindings        []RoleBinding        `yaml:"roleBindings"`
	ClusterRoleBindings []ClusterRoleBinding `yaml:"clusterRoleBindings"`
}

const (
	RoleRefKindRole        = "Role"
	RoleRefKindClusterRole = "ClusterRole"
)
