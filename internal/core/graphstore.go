package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nicsuzor/aops/pkg/models"
)

// RecordStore is the persistence boundary for task records. Defining it
// here keeps core independent of the storage package; app.go wires the
// adapter. Read returns (nil, nil) when no record exists.
type RecordStore interface {
	Put(t *models.Task) error
	Read(id string) (*models.Task, error)
	ReadAll() ([]*models.Task, error)
}

// AuditSink receives one entry per mutating call: who, when, what
// changed. The merge and compliance workflows depend on this trail.
type AuditSink interface {
	Record(actor, taskID, action, detail string)
}

// CreateTaskRequest carries the caller-settable fields for a new task.
type CreateTaskRequest struct {
	Title         string
	Body          string
	Type          models.TaskType
	Status        models.TaskStatus // inbox or active; default inbox
	Priority      *models.Priority
	Assignee      string
	Parent        string
	Project       string
	Branch        string
	DependsOn     []string
	SoftDependsOn []string
	Actor         string
}

// TaskPatch describes a partial update. Nil pointer fields are left
// untouched. BodyAppend commutes and never needs a version token;
// replacing Body wholesale requires ExpectedVersion so an appender and
// a full-rewrite updater cannot silently race.
type TaskPatch struct {
	Title           *string
	Status          *models.TaskStatus
	Priority        *models.Priority
	Assignee        *string
	Parent          *string
	Project         *string
	Branch          *string
	DependsOn       []string
	SoftDependsOn   []string
	Body            *string
	BodyAppend      string
	ExpectedVersion *int64
	Actor           string
}

// GraphStore is the single writer-of-record for the task graph. All
// mutations are serialized through one mutex, which makes per-task
// updates linearizable and lets Claim implement its compare-and-set
// against a freshly read status.
type GraphStore struct {
	mu      sync.Mutex
	records RecordStore
	audit   AuditSink
	idGen   TaskIDGenerator
	weights *WeightResolver
	now     func() time.Time
}

// NewGraphStore creates a GraphStore over the given record store.
// audit may be nil (trail disabled, used in some tests).
func NewGraphStore(records RecordStore, audit AuditSink, idGen TaskIDGenerator, weights *WeightResolver) *GraphStore {
	return &GraphStore{
		records: records,
		audit:   audit,
		idGen:   idGen,
		weights: weights,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and persists a new task. Validation failures are
// surfaced before any mutation; nothing is silently defaulted except
// the documented priority/type/status defaults.
func (g *GraphStore) Create(req CreateTaskRequest) (*models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if strings.TrimSpace(req.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if req.Type == "" {
		req.Type = models.TypeTask
	}
	if !models.ValidTaskType(req.Type) {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", req.Type)}
	}
	status := req.Status
	if status == "" {
		status = models.StatusInbox
	}
	if status != models.StatusInbox && status != models.StatusActive {
		return nil, &ValidationError{Field: "status", Reason: "new tasks start as inbox or active"}
	}
	priority := models.P2
	if req.Priority != nil {
		priority = *req.Priority
	}
	if !models.ValidPriority(priority) {
		return nil, &ValidationError{Field: "priority", Reason: fmt.Sprintf("%d outside P0..P4", priority)}
	}

	all, err := g.readAllLocked()
	if err != nil {
		return nil, err
	}

	now := g.now()
	t := &models.Task{
		ID:            g.idGen.NewID(),
		Title:         req.Title,
		Body:          req.Body,
		Type:          req.Type,
		Status:        status,
		Priority:      priority,
		Assignee:      req.Assignee,
		Parent:        req.Parent,
		Project:       req.Project,
		Branch:        req.Branch,
		DependsOn:     dedupe(req.DependsOn),
		SoftDependsOn: dedupe(req.SoftDependsOn),
		Created:       now,
		Updated:       now,
		Version:       1,
	}

	if err := g.validateReferences(t, all); err != nil {
		return nil, err
	}
	all[t.ID] = t
	if err := ValidateAcyclic(all); err != nil {
		return nil, err
	}

	appendAudit(t, req.Actor, "created", string(t.Status), now)
	if err := g.records.Put(t); err != nil {
		return nil, fmt.Errorf("persisting task %s: %w", t.ID, err)
	}
	g.record(req.Actor, t.ID, "create", fmt.Sprintf("type=%s status=%s", t.Type, t.Status))
	return t.Clone(), nil
}

// Get returns the task with the given id.
func (g *GraphStore) Get(id string) (*models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getLocked(id)
}

// Update applies a partial update after validating every affected
// invariant. Force unlocks only the invariants documented as
// overridable: reopening a terminal task and completing a parent with
// incomplete children. Cycles and claim atomicity are never
// overridable.
func (g *GraphStore) Update(id string, patch TaskPatch, force bool) (*models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.getLocked(id)
	if err != nil {
		return nil, err
	}

	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != t.Version {
		return nil, fmt.Errorf("task %s: expected version %d, have %d: %w",
			id, *patch.ExpectedVersion, t.Version, ErrVersionConflict)
	}
	if patch.Body != nil && patch.ExpectedVersion == nil {
		return nil, &ValidationError{Field: "body", Reason: "full body replacement requires expected_version"}
	}

	all, err := g.readAllLocked()
	if err != nil {
		return nil, err
	}

	updated := t.Clone()
	var changes []string

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
		}
		updated.Title = *patch.Title
		changes = append(changes, "title")
	}
	if patch.Priority != nil {
		if !models.ValidPriority(*patch.Priority) {
			return nil, &ValidationError{Field: "priority", Reason: fmt.Sprintf("%d outside P0..P4", *patch.Priority)}
		}
		updated.Priority = *patch.Priority
		changes = append(changes, fmt.Sprintf("priority=P%d", *patch.Priority))
	}
	if patch.Assignee != nil {
		updated.Assignee = *patch.Assignee
		changes = append(changes, "assignee="+*patch.Assignee)
	}
	if patch.Parent != nil {
		updated.Parent = *patch.Parent
		changes = append(changes, "parent="+*patch.Parent)
	}
	if patch.Project != nil {
		updated.Project = *patch.Project
		changes = append(changes, "project="+*patch.Project)
	}
	if patch.Branch != nil {
		updated.Branch = *patch.Branch
		changes = append(changes, "branch="+*patch.Branch)
	}
	if patch.DependsOn != nil {
		updated.DependsOn = dedupe(patch.DependsOn)
		changes = append(changes, "depends_on")
	}
	if patch.SoftDependsOn != nil {
		updated.SoftDependsOn = dedupe(patch.SoftDependsOn)
		changes = append(changes, "soft_depends_on")
	}
	if patch.Body != nil {
		updated.Body = *patch.Body
		changes = append(changes, "body")
	}

	if patch.Status != nil && *patch.Status != t.Status {
		if err := g.checkStatusChange(t, updated, *patch.Status, patch.Actor, all, force); err != nil {
			return nil, err
		}
		updated.Status = *patch.Status
		changes = append(changes, fmt.Sprintf("status %s -> %s", t.Status, *patch.Status))
		if *patch.Status == models.StatusActive {
			// Reverting a claim or reopening clears the assignee.
			if t.Status == models.StatusInProgress || t.Status.IsTerminal() {
				updated.Assignee = ""
			}
		}
	}

	if err := g.validateReferences(updated, all); err != nil {
		return nil, err
	}
	all[updated.ID] = updated
	if err := ValidateAcyclic(all); err != nil {
		return nil, err
	}

	if len(changes) == 0 && patch.BodyAppend == "" {
		return t, nil
	}

	now := g.now()
	detail := strings.Join(changes, ", ")
	if detail != "" {
		appendAudit(updated, patch.Actor, "updated", detail, now)
	}
	if patch.BodyAppend != "" {
		appendAudit(updated, patch.Actor, "note", patch.BodyAppend, now)
	}
	updated.Updated = now
	updated.Version++

	if err := g.records.Put(updated); err != nil {
		return nil, fmt.Errorf("persisting task %s: %w", id, err)
	}
	g.record(patch.Actor, id, "update", detail)
	return updated.Clone(), nil
}

// Claim is the atomic active -> in_progress transition. Two racing
// claimants cannot both succeed: the status is re-read under the store
// lock and the loser gets ErrAlreadyClaimed rather than a silent
// overwrite. Claiming also requires every hard dependency to be
// terminal.
func (g *GraphStore) Claim(id, assignee string) (*models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if assignee == "" {
		return nil, &ValidationError{Field: "assignee", Reason: "claiming requires an assignee"}
	}
	t, err := g.getLocked(id)
	if err != nil {
		return nil, err
	}
	if t.Status == models.StatusInProgress {
		return nil, fmt.Errorf("task %s is assigned to %s: %w", id, t.Assignee, ErrAlreadyClaimed)
	}
	if t.Status != models.StatusActive {
		return nil, &InvalidTransitionError{TaskID: id, From: t.Status, To: models.StatusInProgress,
			Reason: "only active tasks are claimable"}
	}
	all, err := g.readAllLocked()
	if err != nil {
		return nil, err
	}
	if dep := firstOpenDependency(t, all); dep != "" {
		return nil, &InvalidTransitionError{TaskID: id, From: t.Status, To: models.StatusInProgress,
			Reason: "hard dependency " + dep + " is not terminal"}
	}

	updated := t.Clone()
	updated.Status = models.StatusInProgress
	updated.Assignee = assignee
	now := g.now()
	appendAudit(updated, assignee, "claimed", "", now)
	updated.Updated = now
	updated.Version++

	if err := g.records.Put(updated); err != nil {
		return nil, fmt.Errorf("persisting task %s: %w", id, err)
	}
	g.record(assignee, id, "claim", "")
	return updated.Clone(), nil
}

// Complete moves a task to done. Without force it fails with
// HasIncompleteChildrenError while any child is non-terminal — the
// guard against declaring a parent finished when its goal was not
// actually achieved. Tasks whose work lives on a tracked branch are
// finished by the merge orchestrator after a verified merge; workers
// signal merge_ready instead.
func (g *GraphStore) Complete(id string, force bool) (*models.Task, error) {
	return g.finish(id, models.StatusDone, force, "completed")
}

// Cancel moves a task to cancelled, reachable from any non-terminal
// state. The same children guard applies.
func (g *GraphStore) Cancel(id string, force bool) (*models.Task, error) {
	return g.finish(id, models.StatusCancelled, force, "cancelled")
}

func (g *GraphStore) finish(id string, status models.TaskStatus, force bool, action string) (*models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.getLocked(id)
	if err != nil {
		return nil, err
	}
	if t.Status.IsTerminal() {
		return nil, fmt.Errorf("task %s is %s: %w", id, t.Status, ErrTerminalStatus)
	}
	if status == models.StatusDone && t.Branch != "" {
		return nil, &InvalidTransitionError{TaskID: id, From: t.Status, To: status,
			Reason: "branch-backed work is finished by the merge orchestrator; set merge_ready instead"}
	}
	if !force {
		all, err := g.readAllLocked()
		if err != nil {
			return nil, err
		}
		if open := openChildren(id, all); len(open) > 0 {
			return nil, &HasIncompleteChildrenError{TaskID: id, Children: open}
		}
	}

	updated := t.Clone()
	updated.Status = status
	now := g.now()
	appendAudit(updated, "", action, "", now)
	updated.Updated = now
	updated.Version++

	if err := g.records.Put(updated); err != nil {
		return nil, fmt.Errorf("persisting task %s: %w", id, err)
	}
	g.record("", id, action, "")
	return updated.Clone(), nil
}

// AppendBody appends a note to the task's audit body. Appends commute,
// so no version token is needed; the store lock alone orders them.
func (g *GraphStore) AppendBody(id, actor, note string) (*models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.getLocked(id)
	if err != nil {
		return nil, err
	}
	updated := t.Clone()
	now := g.now()
	appendAudit(updated, actor, "note", note, now)
	updated.Updated = now
	updated.Version++
	if err := g.records.Put(updated); err != nil {
		return nil, fmt.Errorf("persisting task %s: %w", id, err)
	}
	g.record(actor, id, "note", note)
	return updated.Clone(), nil
}

// List returns tasks matching the filter. When the filter asks only for
// active tasks — the ready-equivalent query — results come back in
// ready-queue order; otherwise in creation (id) order.
func (g *GraphStore) List(filter models.TaskFilter) ([]*models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	all, err := g.readAllLocked()
	if err != nil {
		return nil, err
	}

	var out []*models.Task
	for _, t := range all {
		if matchesFilter(t, filter) {
			out = append(out, t.Clone())
		}
	}

	if len(filter.Status) == 1 && filter.Status[0] == models.StatusActive {
		weights := g.weights.Recompute(all)
		for _, t := range out {
			t.DownstreamWeight = weights[t.ID]
		}
		sortReady(out)
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ReadyQueue returns the claimable tasks: active, with every hard
// dependency terminal, ordered by (priority, downstream weight,
// insertion order, title, id).
func (g *GraphStore) ReadyQueue() ([]*models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	all, err := g.readAllLocked()
	if err != nil {
		return nil, err
	}
	weights := g.weights.Recompute(all)

	var ready []*models.Task
	for _, t := range all {
		if t.Status != models.StatusActive {
			continue
		}
		if firstOpenDependency(t, all) != "" {
			continue
		}
		c := t.Clone()
		c.DownstreamWeight = weights[t.ID]
		ready = append(ready, c)
	}
	sortReady(ready)
	return ready, nil
}

// RecomputeWeights recomputes downstream weight for every task and
// persists any that changed.
func (g *GraphStore) RecomputeWeights() (map[string]int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	all, err := g.readAllLocked()
	if err != nil {
		return nil, err
	}
	weights := g.weights.Recompute(all)
	for id, t := range all {
		if t.DownstreamWeight == weights[id] {
			continue
		}
		updated := t.Clone()
		updated.DownstreamWeight = weights[id]
		updated.Version++
		if err := g.records.Put(updated); err != nil {
			return nil, fmt.Errorf("persisting weight for %s: %w", id, err)
		}
	}
	return weights, nil
}

// Tree returns the task with its children nested, children ordered by
// id.
func (g *GraphStore) Tree(id string) (*models.TaskNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	all, err := g.readAllLocked()
	if err != nil {
		return nil, err
	}
	if _, ok := all[id]; !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	children := make(map[string][]string)
	for cid, t := range all {
		if t.Parent != "" {
			children[t.Parent] = append(children[t.Parent], cid)
		}
	}
	for _, ids := range children {
		sort.Strings(ids)
	}

	var build func(id string, seen map[string]bool) *models.TaskNode
	build = func(id string, seen map[string]bool) *models.TaskNode {
		node := &models.TaskNode{Task: all[id].Clone()}
		if seen[id] {
			return node
		}
		seen[id] = true
		for _, cid := range children[id] {
			node.Children = append(node.Children, build(cid, seen))
		}
		return node
	}
	return build(id, make(map[string]bool)), nil
}

// --- internals ---

func (g *GraphStore) getLocked(id string) (*models.Task, error) {
	t, err := g.records.Read(id)
	if err != nil {
		return nil, fmt.Errorf("reading task %s: %w", id, err)
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (g *GraphStore) readAllLocked() (map[string]*models.Task, error) {
	tasks, err := g.records.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading task records: %w", err)
	}
	all := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		all[t.ID] = t
	}
	return all, nil
}

// checkStatusChange enforces the status state machine plus the
// per-transition preconditions (dependencies, branch, children).
func (g *GraphStore) checkStatusChange(old, updated *models.Task, to models.TaskStatus, actor string, all map[string]*models.Task, force bool) error {
	if !models.ValidTaskStatus(to) {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", to)}
	}
	if !CanTransition(old.Status, to, force) {
		if old.Status.IsTerminal() {
			return fmt.Errorf("task %s is %s: %w", old.ID, old.Status, ErrTerminalStatus)
		}
		return &InvalidTransitionError{TaskID: old.ID, From: old.Status, To: to}
	}

	switch to {
	case models.StatusInProgress:
		// Claiming goes through Claim for its CAS; update may not
		// sidestep it.
		return &InvalidTransitionError{TaskID: old.ID, From: old.Status, To: to,
			Reason: "claim the task instead of patching status"}
	case models.StatusBlocked:
		if firstOpenDependency(updated, all) == "" {
			return &ValidationError{Field: "status",
				Reason: "blocked requires a non-terminal hard dependency naming the blocking cause"}
		}
	case models.StatusActive:
		if old.Status == models.StatusBlocked {
			if dep := firstOpenDependency(updated, all); dep != "" {
				return &InvalidTransitionError{TaskID: old.ID, From: old.Status, To: to,
					Reason: "hard dependency " + dep + " is still open"}
			}
		}
	case models.StatusMergeReady:
		if updated.Branch == "" {
			return &ValidationError{Field: "status",
				Reason: "merge_ready requires the task's work to live on a tracked branch"}
		}
	case models.StatusDone:
		// Branch-backed work reaches done only through the merge
		// orchestrator: a worker setting done directly would skip the
		// squash merge, verification, and cleanup. Force does not
		// unlock this edge.
		if updated.Branch != "" && actor != mergeActor {
			return &InvalidTransitionError{TaskID: old.ID, From: old.Status, To: to,
				Reason: "branch-backed work is finished by the merge orchestrator; set merge_ready instead"}
		}
		if !force {
			if open := openChildren(old.ID, all); len(open) > 0 {
				return &HasIncompleteChildrenError{TaskID: old.ID, Children: open}
			}
		}
	}
	return nil
}

// validateReferences checks that parent, project, and dependency ids
// all resolve, and that the project key names a task of type project.
func (g *GraphStore) validateReferences(t *models.Task, all map[string]*models.Task) error {
	if t.Parent != "" {
		if t.Parent == t.ID {
			return &ValidationError{Field: "parent", Reason: "task cannot be its own parent"}
		}
		if _, ok := all[t.Parent]; !ok {
			return &ValidationError{Field: "parent", Reason: fmt.Sprintf("task %s does not exist", t.Parent)}
		}
	}
	if t.Project != "" {
		p, ok := all[t.Project]
		if !ok {
			return &ValidationError{Field: "project", Reason: fmt.Sprintf("task %s does not exist", t.Project)}
		}
		if p.Type != models.TypeProject {
			return &ValidationError{Field: "project",
				Reason: fmt.Sprintf("task %s has type %s, want project", t.Project, p.Type)}
		}
	}
	for _, dep := range t.DependsOn {
		if dep == t.ID {
			return &ValidationError{Field: "depends_on", Reason: "task cannot depend on itself"}
		}
		if _, ok := all[dep]; !ok {
			return &ValidationError{Field: "depends_on", Reason: fmt.Sprintf("task %s does not exist", dep)}
		}
	}
	for _, dep := range t.SoftDependsOn {
		if _, ok := all[dep]; !ok {
			return &ValidationError{Field: "soft_depends_on", Reason: fmt.Sprintf("task %s does not exist", dep)}
		}
	}
	return nil
}

func (g *GraphStore) record(actor, taskID, action, detail string) {
	if g.audit == nil {
		return
	}
	if actor == "" {
		actor = "system"
	}
	g.audit.Record(actor, taskID, action, detail)
}

// appendAudit writes one audit line into the task body.
func appendAudit(t *models.Task, actor, action, detail string, now time.Time) {
	if actor == "" {
		actor = "system"
	}
	line := fmt.Sprintf("[%s] %s %s", now.Format(time.RFC3339), actor, action)
	if detail != "" {
		line += ": " + detail
	}
	if t.Body != "" && !strings.HasSuffix(t.Body, "\n") {
		t.Body += "\n"
	}
	t.Body += line + "\n"
}

// firstOpenDependency returns the first hard dependency of t that is
// not terminal, or "" when all are resolved. Unknown ids count as open:
// a dangling dependency must block, not vanish.
func firstOpenDependency(t *models.Task, all map[string]*models.Task) string {
	for _, dep := range t.DependsOn {
		d, ok := all[dep]
		if !ok || !d.Status.IsTerminal() {
			return dep
		}
	}
	return ""
}

// openChildren returns the ids of non-terminal children of id, sorted.
func openChildren(id string, all map[string]*models.Task) []string {
	var open []string
	for cid, t := range all {
		if t.Parent == id && !t.Status.IsTerminal() {
			open = append(open, cid)
		}
	}
	sort.Strings(open)
	return open
}

func matchesFilter(t *models.Task, f models.TaskFilter) bool {
	if len(f.Status) > 0 {
		found := false
		for _, s := range f.Status {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Project != "" && t.Project != f.Project {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Assignee != "" && t.Assignee != f.Assignee {
		return false
	}
	return true
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
