// Package http provides HTTP transport for the groups service
package http

import (
	"fmt"
	stdhttp "net/http"
	"time"

	"pursue/internal/modkit/httpkit"
	perr "pursue/internal/platform/errors"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/net/http/bind"
	"pursue/internal/services/groups/domain"
	svc "pursue/internal/services/groups/service"
)

// maxIconBytes caps icon uploads at 2 MiB before decoding
const maxIconBytes = 2 << 20

// Register mounts every group endpoint except the icon upload, which the
// module wraps in the upload rate limiter separately
func Register(r httpkit.Router, s *svc.Svc, heat domain.HeatPort) {
	h := &handlers{svc: s, heat: heat}

	r.Post("/", httpkit.Handle(h.create))
	r.Post("/join", httpkit.Handle(h.joinByCode))

	httpkit.Get(r, "/{groupID}", h.get)
	httpkit.PatchJSON[domain.UpdateGroupInput](r, "/{groupID}", h.update)
	r.Delete("/{groupID}", httpkit.Handle(h.delete))
	r.Get("/{groupID}/icon", httpkit.Handle(h.icon))

	httpkit.Get(r, "/{groupID}/members", h.members)
	r.Delete("/{groupID}/members/me", httpkit.Handle(h.leave))
	r.Delete("/{groupID}/members/{memberID}", httpkit.Handle(h.removeMember))
	r.Patch("/{groupID}/members/{memberID}", httpkit.Handle(h.changeRole))

	r.Post("/{groupID}/join-requests", httpkit.Handle(h.requestJoin))
	httpkit.Get(r, "/{groupID}/join-requests", h.pendingRequests)
	r.Post("/{groupID}/join-requests/{requestID}/approve", httpkit.Handle(h.approve))
	r.Post("/{groupID}/join-requests/{requestID}/decline", httpkit.Handle(h.decline))

	httpkit.Get(r, "/{groupID}/invite", h.invite)
	r.Post("/{groupID}/invite/regenerate", httpkit.Handle(h.regenerateInvite))

	httpkit.Get(r, "/{groupID}/export-progress", h.exportProgress)
	httpkit.Get(r, "/{groupID}/heat", h.heatCurrent)
	httpkit.Get(r, "/{groupID}/heat/history", h.heatHistory)
}

// RegisterIconWrite mounts the icon upload endpoint
func RegisterIconWrite(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	r.Put("/{groupID}/icon", httpkit.Handle(h.setIcon))
}

type handlers struct {
	svc  *svc.Svc
	heat domain.HeatPort
}

// @Summary Create a group
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body domain.CreateGroupInput true "group settings and seed goals"
// @Success 201 {object} domain.Detail "created"
// @Router /groups [post]
func (h *handlers) create(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	in, err := bind.ParseJSON[domain.CreateGroupInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	det, err := h.svc.Create(r.Context(), uid, in)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Created(det)
}

// @Summary Redeem an invite code
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body domain.JoinByCodeInput true "invite code"
// @Success 201 {object} domain.JoinResult "membership pending"
// @Router /groups/join [post]
func (h *handlers) joinByCode(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	in, err := bind.ParseJSON[domain.JoinByCodeInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	res, err := h.svc.JoinByCode(r.Context(), uid, in)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Created(res)
}

// @Summary Group detail with the caller's standing
// @Tags Groups
// @Produce json
// @Param groupID path string true "group id"
// @Success 200 {object} domain.Detail "ok"
// @Router /groups/{groupID} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	return h.svc.Get(r.Context(), uid, gid.String())
}

// @Summary Update group settings
// @Tags Groups
// @Accept json
// @Produce json
// @Param groupID path string true "group id"
// @Param payload body domain.UpdateGroupInput true "fields to change"
// @Success 200 {object} domain.Detail "ok"
// @Router /groups/{groupID} [patch]
func (h *handlers) update(r *stdhttp.Request, in domain.UpdateGroupInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	return h.svc.Update(r.Context(), uid, gid.String(), in)
}

// @Summary Delete the group and everything in it
// @Tags Groups
// @Param groupID path string true "group id"
// @Success 204 "deleted"
// @Router /groups/{groupID} [delete]
func (h *handlers) delete(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.Delete(r.Context(), uid, gid.String()); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// iconETag changes whenever the stored image does
func iconETag(groupID string, ic domain.Icon) string {
	return fmt.Sprintf(`"icon-%s-%d"`, groupID, ic.UpdatedAt.UnixMilli())
}

// @Summary Group icon image
// @Tags Groups
// @Produce image/jpeg
// @Param groupID path string true "group id"
// @Success 200 {string} binary "image bytes"
// @Success 304 "not modified"
// @Router /groups/{groupID}/icon [get]
func (h *handlers) icon(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	ic, err := h.svc.Icon(r.Context(), uid, gid.String())
	if err != nil {
		return phttp.Error(err)
	}

	etag := iconETag(gid.String(), ic)
	if r.Header.Get("If-None-Match") == etag {
		resp := httpkit.NotModified()
		resp.Header.Set("ETag", etag)
		return resp
	}

	resp := httpkit.Blob(stdhttp.StatusOK, ic.MIME, ic.Data)
	resp.Header.Set("ETag", etag)
	resp.Header.Set("Cache-Control", "public, max-age=86400")
	return resp
}

// @Summary Upload a group icon (multipart "icon" field or raw image body)
// @Tags Groups
// @Accept multipart/form-data
// @Produce json
// @Param groupID path string true "group id"
// @Success 200 {object} domain.Detail "ok"
// @Router /groups/{groupID}/icon [put]
func (h *handlers) setIcon(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	data, err := httpkit.ReadImage(r, "icon", maxIconBytes)
	if err != nil {
		return phttp.Error(err)
	}
	det, err := h.svc.SetIcon(r.Context(), uid, gid.String(), data)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.OK(det)
}

// @Summary Roster with roles and statuses
// @Tags Groups
// @Produce json
// @Param groupID path string true "group id"
// @Success 200 {array} domain.Member "ok"
// @Router /groups/{groupID}/members [get]
func (h *handlers) members(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	return h.svc.Members(r.Context(), uid, gid.String())
}

// @Summary Leave the group
// @Tags Groups
// @Produce json
// @Param groupID path string true "group id"
// @Success 200 {object} domain.LeaveResult "left"
// @Router /groups/{groupID}/members/me [delete]
func (h *handlers) leave(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	res, err := h.svc.Leave(r.Context(), uid, gid.String())
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.OK(res)
}

// @Summary Remove a member
// @Tags Groups
// @Param groupID path string true "group id"
// @Param memberID path string true "user id of the member"
// @Success 204 "removed"
// @Router /groups/{groupID}/members/{memberID} [delete]
func (h *handlers) removeMember(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.RemoveMember(r.Context(), uid, gid.String(), httpkit.Param(r, "memberID")); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Promote or demote a member
// @Tags Groups
// @Accept json
// @Param groupID path string true "group id"
// @Param memberID path string true "user id of the member"
// @Param payload body domain.ChangeRoleInput true "new role"
// @Success 204 "changed"
// @Router /groups/{groupID}/members/{memberID} [patch]
func (h *handlers) changeRole(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	in, err := bind.ParseJSON[domain.ChangeRoleInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.ChangeRole(r.Context(), uid, gid.String(), httpkit.Param(r, "memberID"), in); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Ask to join a public group
// @Tags Groups
// @Accept json
// @Produce json
// @Param groupID path string true "group id"
// @Param payload body domain.JoinRequestInput true "optional note to the admins"
// @Success 201 {object} domain.JoinResult "requested"
// @Router /groups/{groupID}/join-requests [post]
func (h *handlers) requestJoin(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	in, err := bind.ParseJSON[domain.JoinRequestInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	res, err := h.svc.RequestJoin(r.Context(), uid, gid.String(), in)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Created(res)
}

// @Summary Pending join requests
// @Tags Groups
// @Produce json
// @Param groupID path string true "group id"
// @Success 200 {array} domain.JoinRequest "ok"
// @Router /groups/{groupID}/join-requests [get]
func (h *handlers) pendingRequests(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	return h.svc.PendingRequests(r.Context(), uid, gid.String())
}

// @Summary Approve a join request
// @Tags Groups
// @Param groupID path string true "group id"
// @Param requestID path string true "join request id"
// @Success 204 "approved"
// @Router /groups/{groupID}/join-requests/{requestID}/approve [post]
func (h *handlers) approve(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.Approve(r.Context(), uid, gid.String(), httpkit.Param(r, "requestID")); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Decline a join request
// @Tags Groups
// @Param groupID path string true "group id"
// @Param requestID path string true "join request id"
// @Success 204 "declined"
// @Router /groups/{groupID}/join-requests/{requestID}/decline [post]
func (h *handlers) decline(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.Decline(r.Context(), uid, gid.String(), httpkit.Param(r, "requestID")); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Live invite code and share URL
// @Tags Groups
// @Produce json
// @Param groupID path string true "group id"
// @Success 200 {object} domain.InviteInfo "ok"
// @Router /groups/{groupID}/invite [get]
func (h *handlers) invite(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	return h.svc.Invite(r.Context(), uid, gid.String())
}

// @Summary Revoke the invite code and mint a new one
// @Tags Groups
// @Produce json
// @Param groupID path string true "group id"
// @Success 201 {object} domain.InviteInfo "regenerated"
// @Router /groups/{groupID}/invite/regenerate [post]
func (h *handlers) regenerateInvite(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	info, err := h.svc.RegenerateInvite(r.Context(), uid, gid.String())
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Created(info)
}

// @Summary Export member-by-goal completion aggregates
// @Tags Groups
// @Produce json
// @Param groupID path string true "group id"
// @Param from query string true "range start, YYYY-MM-DD"
// @Param to query string true "range end, YYYY-MM-DD"
// @Success 200 {object} domain.Export "ok"
// @Router /groups/{groupID}/export-progress [get]
func (h *handlers) exportProgress(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	from, err := queryDate(r, "from")
	if err != nil {
		return nil, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return nil, err
	}
	return h.svc.ExportProgress(r.Context(), uid, gid.String(), from, to)
}

// @Summary Current heat score and tier
// @Tags Groups
// @Produce json
// @Param groupID path string true "group id"
// @Success 200 {object} domain.HeatNow "ok"
// @Router /groups/{groupID}/heat [get]
func (h *handlers) heatCurrent(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	return h.heat.Current(r.Context(), uid, gid.String())
}

// @Summary Daily heat history with rolling stats
// @Tags Groups
// @Produce json
// @Param groupID path string true "group id"
// @Param days query int false "window size, default 30"
// @Success 200 {object} domain.HeatHistory "ok"
// @Router /groups/{groupID}/heat/history [get]
func (h *handlers) heatHistory(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	days := httpkit.QueryInt(r, "days", 0)
	return h.heat.History(r.Context(), uid, gid.String(), days)
}

// queryDate reads a required YYYY-MM-DD query parameter
func queryDate(r *stdhttp.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "missing date parameter"), name)
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "dates use the YYYY-MM-DD form"), name)
	}
	return d, nil
}
