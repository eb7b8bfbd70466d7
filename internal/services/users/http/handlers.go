// Package http provides HTTP transport for the users service
package http

import (
	"fmt"
	stdhttp "net/http"

	"pursue/internal/modkit/httpkit"
	authdomain "pursue/internal/services/auth/domain"
	"pursue/internal/services/users/domain"
	svc "pursue/internal/services/users/service"
)

// maxAvatarBytes caps avatar uploads at 2 MiB before decoding
const maxAvatarBytes = 2 << 20

// RegisterMe mounts the profile endpoints under /users/me
func RegisterMe(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/", h.me)
	httpkit.PatchJSON[domain.UpdateProfileInput](r, "/", h.updateMe)
	httpkit.Get(r, "/groups", h.myGroups)
	r.Delete("/", httpkit.Handle(h.deleteAccount))
	r.Get("/avatar", httpkit.Handle(h.avatar))
}

// RegisterAvatarWrite mounts the avatar mutation endpoints. They are split
// out so the module can wrap them in the upload rate limiter
func RegisterAvatarWrite(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	r.Put("/avatar", httpkit.Handle(h.uploadAvatar))
	r.Delete("/avatar", httpkit.Handle(h.deleteAvatar))
}

// RegisterAccount mounts account-security endpoints backed by the auth service
func RegisterAccount(r httpkit.Router, accounts authdomain.AccountsPort) {
	h := &accountHandlers{accounts: accounts}

	httpkit.PutJSON[authdomain.ChangePasswordInput](r, "/password", h.changePassword)
	httpkit.Get(r, "/providers", h.providers)
	httpkit.Get(r, "/consents", h.consents)
	httpkit.PostJSON[authdomain.AcceptConsentsInput](r, "/consents", h.acceptConsents)
}

type handlers struct{ svc *svc.Svc }

// @Summary Current user's profile
// @Tags Users
// @Produce json
// @Success 200 {object} domain.Profile "ok"
// @Router /users/me [get]
func (h *handlers) me(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Me(r.Context(), uid)
}

// @Summary Update display name or timezone
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body domain.UpdateProfileInput true "profile patch"
// @Success 200 {object} domain.Profile "ok"
// @Router /users/me [patch]
func (h *handlers) updateMe(r *stdhttp.Request, in domain.UpdateProfileInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.UpdateMe(r.Context(), uid, in)
}

// @Summary Groups the user belongs to
// @Tags Users
// @Produce json
// @Success 200 {array} domain.GroupSummary "ok"
// @Router /users/me/groups [get]
func (h *handlers) myGroups(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.MyGroups(r.Context(), uid)
}

// @Summary Delete the account
// @Tags Users
// @Success 204 "deleted"
// @Router /users/me [delete]
func (h *handlers) deleteAccount(r *stdhttp.Request) httpkit.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return httpkit.Error(err)
	}
	if err := h.svc.DeleteAccount(r.Context(), uid); err != nil {
		return httpkit.Error(err)
	}
	return httpkit.NoContent()
}

// avatarETag changes whenever the image does; clients revalidate with
// If-None-Match
func avatarETag(userID string, av domain.Avatar) string {
	return fmt.Sprintf(`"avatar-%s-%d"`, userID, av.UpdatedAt.UnixMilli())
}

// @Summary Current user's avatar image
// @Tags Users
// @Produce image/jpeg
// @Success 200 {string} binary "image bytes"
// @Success 304 "not modified"
// @Router /users/me/avatar [get]
func (h *handlers) avatar(r *stdhttp.Request) httpkit.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return httpkit.Error(err)
	}
	av, err := h.svc.Avatar(r.Context(), uid)
	if err != nil {
		return httpkit.Error(err)
	}

	etag := avatarETag(uid, av)
	if r.Header.Get("If-None-Match") == etag {
		resp := httpkit.NotModified()
		resp.Header.Set("ETag", etag)
		return resp
	}

	resp := httpkit.Blob(stdhttp.StatusOK, av.MIME, av.Data)
	resp.Header.Set("ETag", etag)
	resp.Header.Set("Cache-Control", "public, max-age=86400")
	return resp
}

// @Summary Upload an avatar (multipart "avatar" field or raw image body)
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} domain.Profile "ok"
// @Router /users/me/avatar [put]
func (h *handlers) uploadAvatar(r *stdhttp.Request) httpkit.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return httpkit.Error(err)
	}
	data, err := httpkit.ReadImage(r, "avatar", maxAvatarBytes)
	if err != nil {
		return httpkit.Error(err)
	}
	p, err := h.svc.UploadAvatar(r.Context(), uid, data)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.OK(p)
}

// @Summary Remove the avatar
// @Tags Users
// @Success 204 "removed"
// @Router /users/me/avatar [delete]
func (h *handlers) deleteAvatar(r *stdhttp.Request) httpkit.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return httpkit.Error(err)
	}
	if err := h.svc.DeleteAvatar(r.Context(), uid); err != nil {
		return httpkit.Error(err)
	}
	return httpkit.NoContent()
}

type accountHandlers struct{ accounts authdomain.AccountsPort }

// @Summary Change password
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body authdomain.ChangePasswordInput true "current and new password"
// @Success 200 {object} authdomain.Ack "ok"
// @Router /users/me/password [put]
func (h *accountHandlers) changePassword(r *stdhttp.Request, in authdomain.ChangePasswordInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	if err := h.accounts.ChangePassword(r.Context(), uid, in); err != nil {
		return nil, err
	}
	return authdomain.Ack{Message: "password updated"}, nil
}

// @Summary Linked sign-in providers
// @Tags Users
// @Produce json
// @Success 200 {array} authdomain.ProviderLink "ok"
// @Router /users/me/providers [get]
func (h *accountHandlers) providers(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.accounts.Providers(r.Context(), uid)
}

// @Summary Consent records
// @Tags Users
// @Produce json
// @Success 200 {array} authdomain.ConsentRecord "ok"
// @Router /users/me/consents [get]
func (h *accountHandlers) consents(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.accounts.Consents(r.Context(), uid)
}

// @Summary Accept the current policies
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body authdomain.AcceptConsentsInput true "accepted policies"
// @Success 200 {array} authdomain.ConsentRecord "ok"
// @Router /users/me/consents [post]
func (h *accountHandlers) acceptConsents(r *stdhttp.Request, in authdomain.AcceptConsentsInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.accounts.AcceptConsents(r.Context(), uid, in)
}
