// Package http provides HTTP transport for the goals service
package http

import (
	stdhttp "net/http"
	"time"

	"pursue/internal/modkit/httpkit"
	perr "pursue/internal/platform/errors"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/net/http/bind"
	"pursue/internal/services/goals/domain"
	svc "pursue/internal/services/goals/service"
)

// maxPhotoBytes caps progress photo uploads at 5 MiB before decoding
const maxPhotoBytes = 5 << 20

// Register mounts the single-goal endpoints under /goals
func Register(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/{goalID}", h.get)
	httpkit.PatchJSON[domain.UpdateGoalInput](r, "/{goalID}", h.update)
	r.Delete("/{goalID}", httpkit.Handle(h.archive))

	httpkit.Get(r, "/{goalID}/progress", h.entries)
	httpkit.Get(r, "/{goalID}/progress/me", h.myEntries)
}

// RegisterGroupGoals mounts the group-scoped list and create endpoints
func RegisterGroupGoals(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/", h.list)
	r.Post("/", httpkit.Handle(h.create))
}

// RegisterProgress mounts entry edits and photo reads under /progress.
// Logging and photo upload mount separately so the module can wrap each
// in its own rate limiter
func RegisterProgress(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	httpkit.PatchJSON[domain.UpdateEntryInput](r, "/{entryID}", h.updateEntry)
	r.Delete("/{entryID}", httpkit.Handle(h.deleteEntry))

	httpkit.Get(r, "/{entryID}/photo", h.photo)
	r.Delete("/{entryID}/photo", httpkit.Handle(h.deletePhoto))
}

// RegisterProgressLog mounts the progress log endpoint
func RegisterProgressLog(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	r.Post("/", httpkit.Handle(h.log))
}

// RegisterPhotoWrite mounts the photo upload endpoint
func RegisterPhotoWrite(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	r.Post("/{entryID}/photo", httpkit.Handle(h.attachPhoto))
}

// RegisterMemberProgress mounts the per-member aggregate view
func RegisterMemberProgress(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.memberProgress)
}

type handlers struct {
	svc *svc.Svc
}

// @Summary Goals with the current period's entries
// @Tags Goals
// @Produce json
// @Param groupID path string true "group id"
// @Success 200 {object} domain.GroupGoalList "ok"
// @Router /groups/{groupID}/goals [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	return h.svc.GoalsWithProgress(r.Context(), uid, gid.String())
}

// @Summary Create a goal
// @Tags Goals
// @Accept json
// @Produce json
// @Param groupID path string true "group id"
// @Param payload body domain.CreateGoalInput true "goal definition"
// @Success 201 {object} domain.Goal "created"
// @Router /groups/{groupID}/goals [post]
func (h *handlers) create(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return phttp.Error(err)
	}
	in, err := bind.ParseJSON[domain.CreateGoalInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	goal, err := h.svc.CreateGoal(r.Context(), uid, gid.String(), in)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Created(goal)
}

// @Summary Goal detail
// @Tags Goals
// @Produce json
// @Param goalID path string true "goal id"
// @Success 200 {object} domain.Goal "ok"
// @Router /goals/{goalID} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Goal(r.Context(), uid, httpkit.Param(r, "goalID"))
}

// @Summary Update a goal
// @Tags Goals
// @Accept json
// @Produce json
// @Param goalID path string true "goal id"
// @Param payload body domain.UpdateGoalInput true "fields to change"
// @Success 200 {object} domain.Goal "ok"
// @Router /goals/{goalID} [patch]
func (h *handlers) update(r *stdhttp.Request, in domain.UpdateGoalInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.UpdateGoal(r.Context(), uid, httpkit.Param(r, "goalID"), in)
}

// @Summary Archive a goal
// @Tags Goals
// @Param goalID path string true "goal id"
// @Success 204 "archived"
// @Router /goals/{goalID} [delete]
func (h *handlers) archive(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.ArchiveGoal(r.Context(), uid, httpkit.Param(r, "goalID")); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Entry history for a goal, all members
// @Tags Progress
// @Produce json
// @Param goalID path string true "goal id"
// @Param from query string false "range start, YYYY-MM-DD, default 30 days back"
// @Param to query string false "range end, YYYY-MM-DD, default today"
// @Success 200 {array} domain.Entry "ok"
// @Router /goals/{goalID}/progress [get]
func (h *handlers) entries(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	from, to, err := queryRange(r)
	if err != nil {
		return nil, err
	}
	return h.svc.GoalEntries(r.Context(), uid, httpkit.Param(r, "goalID"), from, to)
}

// @Summary The caller's own entry history for a goal
// @Tags Progress
// @Produce json
// @Param goalID path string true "goal id"
// @Param from query string false "range start, YYYY-MM-DD, default 30 days back"
// @Param to query string false "range end, YYYY-MM-DD, default today"
// @Success 200 {array} domain.Entry "ok"
// @Router /goals/{goalID}/progress/me [get]
func (h *handlers) myEntries(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	from, to, err := queryRange(r)
	if err != nil {
		return nil, err
	}
	return h.svc.MyGoalEntries(r.Context(), uid, httpkit.Param(r, "goalID"), from, to)
}

// @Summary Log progress against a goal
// @Tags Progress
// @Accept json
// @Produce json
// @Param payload body domain.LogProgressInput true "goal, date, and value"
// @Success 201 {object} domain.Entry "logged"
// @Router /progress [post]
func (h *handlers) log(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	in, err := bind.ParseJSON[domain.LogProgressInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	entry, err := h.svc.LogProgress(r.Context(), uid, in)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Created(entry)
}

// @Summary Edit an entry's value, note, or title
// @Tags Progress
// @Accept json
// @Produce json
// @Param entryID path string true "progress entry id"
// @Param payload body domain.UpdateEntryInput true "fields to change"
// @Success 200 {object} domain.Entry "ok"
// @Router /progress/{entryID} [patch]
func (h *handlers) updateEntry(r *stdhttp.Request, in domain.UpdateEntryInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.UpdateEntry(r.Context(), uid, httpkit.Param(r, "entryID"), in)
}

// @Summary Delete an entry
// @Tags Progress
// @Param entryID path string true "progress entry id"
// @Success 204 "deleted"
// @Router /progress/{entryID} [delete]
func (h *handlers) deleteEntry(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.DeleteEntry(r.Context(), uid, httpkit.Param(r, "entryID")); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Attach a photo to the caller's entry (multipart "photo" field or raw image body)
// @Tags Progress
// @Accept multipart/form-data
// @Produce json
// @Param entryID path string true "progress entry id"
// @Success 201 {object} domain.PhotoView "attached"
// @Router /progress/{entryID}/photo [post]
func (h *handlers) attachPhoto(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	data, err := httpkit.ReadImage(r, "photo", maxPhotoBytes)
	if err != nil {
		return phttp.Error(err)
	}
	view, err := h.svc.AttachPhoto(r.Context(), uid, httpkit.Param(r, "entryID"), data)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Created(view)
}

// @Summary Signed URL for an entry's photo
// @Tags Progress
// @Produce json
// @Param entryID path string true "progress entry id"
// @Success 200 {object} domain.PhotoView "ok"
// @Router /progress/{entryID}/photo [get]
func (h *handlers) photo(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.PhotoFor(r.Context(), uid, httpkit.Param(r, "entryID"))
}

// @Summary Delete an entry's photo
// @Tags Progress
// @Param entryID path string true "progress entry id"
// @Success 204 "deleted"
// @Router /progress/{entryID}/photo [delete]
func (h *handlers) deletePhoto(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.DeletePhoto(r.Context(), uid, httpkit.Param(r, "entryID")); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Per-goal completion aggregates for one member
// @Tags Progress
// @Produce json
// @Param groupID path string true "group id"
// @Param memberID path string true "user id of the member"
// @Param from query string false "range start, YYYY-MM-DD, default 30 days back"
// @Param to query string false "range end, YYYY-MM-DD, default today"
// @Success 200 {object} domain.MemberProgress "ok"
// @Router /groups/{groupID}/members/{memberID}/progress [get]
func (h *handlers) memberProgress(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	from, to, err := queryRange(r)
	if err != nil {
		return nil, err
	}
	return h.svc.MemberProgress(r.Context(), uid, gid.String(), httpkit.Param(r, "memberID"), from, to)
}

// queryRange reads the optional from/to date parameters. Absent values
// stay zero; the service fills in its default window
func queryRange(r *stdhttp.Request) (from, to time.Time, err error) {
	if from, err = queryDate(r, "from"); err != nil {
		return from, to, err
	}
	to, err = queryDate(r, "to")
	return from, to, err
}

func queryDate(r *stdhttp.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "dates use the YYYY-MM-DD form"), name)
	}
	return d, nil
}
