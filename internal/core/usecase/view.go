package usecase

import "github.com/railsewa/grievance-service/internal/core/domain"

// FilterForCaller projects the store for one caller: administrators see
// every record, everyone else sees exactly the records they authored.
func FilterForCaller(all []domain.Complaint, caller domain.Identity) []domain.Complaint {
	out := make([]domain.Complaint, 0, len(all))
	for _, c := range all {
		if !caller.IsAdmin() && c.OwnerEmail != caller.OwnerEmail() {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}
