package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/timgst1/aegis/internal/policy"
)

// PolicyHandler exposes the policy-ingestion operations. Upserts and
// deletes are idempotent; the name and namespace in the URL win over
// whatever the body says.
type PolicyHandler struct {
	Store *policy.Store
}

func (h PolicyHandler) PutRole(w http.ResponseWriter, r *http.Request) {
	var role policy.Role
	if err := json.NewDecoder(r.Body).Decode(&role); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	role.Namespace = chi.URLParam(r, "namespace")
	role.Name = chi.URLParam(r, "name")

	if err := policy.ValidateRole(&role); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.Store.UpsertRole(role)
	writeVersion(w, h.Store.Version())
}

func (h PolicyHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	h.Store.DeleteRole(chi.URLParam(r, "namespace"), chi.URLParam(r, "name"))
	writeVersion(w, h.Store.Version())
}

func (h PolicyHandler) PutClusterRole(w http.ResponseWriter, r *http.Request) {
	var cr policy.ClusterRole
	if err := json.NewDecoder(r.Body).Decode(&cr); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cr.Name = chi.URLParam(r, "name")

	if err := policy.ValidateClusterRole(&cr); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.Store.UpsertClusterRole(cr)
	writeVersion(w, h.Store.Version())
}

func (h PolicyHandler) DeleteClusterRole(w http.ResponseWriter, r *http.Request) {
	h.Store.DeleteClusterRole(chi.URLParam(r, "name"))
	writeVersion(w, h.Store.Version())
}

func (h PolicyHandler) PutRoleBinding(w http.ResponseWriter, r *http.Request) {
	var rb policy.RoleBinding
	if err := json.NewDecoder(r.Body).Decode(&rb); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rb.Namespace = chi.URLParam(r, "namespace")
	rb.Name = chi.URLParam(r, "name")

	if err := policy.ValidateRoleBinding(&rb); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.Store.UpsertRoleBinding(rb)
	writeVersion(w, h.Store.Version())
}

func (h PolicyHandler) DeleteRoleBinding(w http.ResponseWriter, r *http.Request) {
	h.Store.DeleteRoleBinding(chi.URLParam(r, "namespace"), chi.URLParam(r, "name"))
	writeVersion(w, h.Store.Version())
}

func (h PolicyHandler) PutClusterRoleBinding(w http.ResponseWriter, r *http.Request) {
	var crb policy.ClusterRoleBinding
	if err := json.NewDecoder(r.Body).Decode(&crb); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	crb.Name = chi.URLParam(r, "name")

	if err := policy.ValidateClusterRoleBinding(&crb); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.Store.UpsertClusterRoleBinding(crb)
	writeVersion(w, h.Store.Version())
}

func (h PolicyHandler) DeleteClusterRoleBinding(w http.ResponseWriter, r *http.Request) {
	h.Store.DeleteClusterRoleBinding(chi.URLParam(r, "name"))
	writeVersion(w, h.Store.Version())
}

func writeVersion(w http.ResponseWriter, version uint64) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]uint64{"version": version})
}
