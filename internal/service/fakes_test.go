package service

import (
	"context"
	"sort"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"gorm.io/gorm"
)

// In-memory repository fakes. Each fake returns failWith from every method
// when set, to exercise storage-error paths.

// --- users ---

type memUserRepo struct {
	users    map[uint]*model.User
	failWith error
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	m := &memUserRepo{users: make(map[uint]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUserRepo) Create(_ context.Context, u *model.User) error {
	if m.failWith != nil {
		return m.failWith
	}
	if u.ID == 0 {
		u.ID = uint(len(m.users) + 1)
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByOpenID(_ context.Context, openID string) (*model.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.OpenID == openID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *memUserRepo) Update(_ context.Context, u *model.User) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) Deactivate(_ context.Context, id uint) error {
	if m.failWith != nil {
		return m.failWith
	}
	if u, ok := m.users[id]; ok {
		u.IsActive = false
	}
	return nil
}

// --- roles ---

type memRoleRepo struct {
	roles       map[uint]*model.Role
	perms       map[uint]model.Permission
	nextRoleID  uint
	nextPermID  uint
	activeCount map[uint]int64
	failWith    error
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{
		roles:       make(map[uint]*model.Role),
		perms:       make(map[uint]model.Permission),
		activeCount: make(map[uint]int64),
	}
}

func (m *memRoleRepo) addPermission(code, name, category string) model.Permission {
	m.nextPermID++
	p := model.Permission{ID: m.nextPermID, Code: code, Name: name, Category: category}
	m.perms[p.ID] = p
	return p
}

func (m *memRoleRepo) addRole(name string, perms ...model.Permission) *model.Role {
	m.nextRoleID++
	r := &model.Role{ID: m.nextRoleID, Name: name, Permissions: perms, CreatedAt: time.Now()}
	m.roles[r.ID] = r
	return r
}

func (m *memRoleRepo) Create(_ context.Context, role *model.Role) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.nextRoleID++
	role.ID = m.nextRoleID
	role.CreatedAt = time.Now()
	m.roles[role.ID] = role
	return nil
}

func (m *memRoleRepo) Update(_ context.Context, role *model.Role) error {
	if m.failWith != nil {
		return m.failWith
	}
	existing, ok := m.roles[role.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	// Save with nil Permissions must not touch bindings.
	role.Permissions = existing.Permissions
	m.roles[role.ID] = role
	return nil
}

func (m *memRoleRepo) Delete(_ context.Context, id uint) error {
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.roles, id)
	return nil
}

func (m *memRoleRepo) FindByID(_ context.Context, id uint) (*model.Role, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	r, ok := m.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRoleRepo) FindByName(_ context.Context, name string) (*model.Role, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, r := range m.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRoleRepo) ListAll(_ context.Context) ([]model.Role, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]model.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRoleRepo) Count(_ context.Context) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	return int64(len(m.roles)), nil
}

func (m *memRoleRepo) ListPermissions(_ context.Context) ([]model.Permission, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]model.Permission, 0, len(m.perms))
	for _, p := range m.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRoleRepo) FindPermissionsByIDs(_ context.Context, ids []uint) ([]model.Permission, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]model.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRoleRepo) FindOrCreatePermission(_ context.Context, perm *model.Permission) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, p := range m.perms {
		if p.Code == perm.Code {
			*perm = p
			return nil
		}
	}
	m.nextPermID++
	perm.ID = m.nextPermID
	m.perms[perm.ID] = *perm
	return nil
}

func (m *memRoleRepo) ReplacePermissions(_ context.Context, roleID uint, permissionIDs []uint) error {
	if m.failWith != nil {
		return m.failWith
	}
	r, ok := m.roles[roleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	perms := make([]model.Permission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		if p, ok := m.perms[id]; ok {
			perms = append(perms, p)
		}
	}
	r.Permissions = perms
	return nil
}

func (m *memRoleRepo) ClearPermissions(_ context.Context, roleID uint) error {
	if m.failWith != nil {
		return m.failWith
	}
	if r, ok := m.roles[roleID]; ok {
		r.Permissions = nil
	}
	return nil
}

func (m *memRoleRepo) CountActiveAssignments(_ context.Context, roleID uint) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	return m.activeCount[roleID], nil
}

// --- institutions ---

type memInstitutionRepo struct {
	insts    map[uint]model.Institution
	failWith error
}

func newMemInstitutionRepo(insts ...model.Institution) *memInstitutionRepo {
	m := &memInstitutionRepo{insts: make(map[uint]model.Institution)}
	for _, i := range insts {
		m.insts[i.ID] = i
	}
	return m
}

func (m *memInstitutionRepo) Create(_ context.Context, inst *model.Institution) error {
	if m.failWith != nil {
		return m.failWith
	}
	if inst.ID == 0 {
		inst.ID = uint(len(m.insts) + 1)
	}
	m.insts[inst.ID] = *inst
	return nil
}

func (m *memInstitutionRepo) GetByID(_ context.Context, id uint) (*model.Institution, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	i, ok := m.insts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &i, nil
}

func (m *memInstitutionRepo) GetByCode(_ context.Context, code string) (*model.Institution, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, i := range m.insts {
		if i.Code == code {
			return &i, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memInstitutionRepo) ListAll(_ context.Context) ([]model.Institution, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]model.Institution, 0, len(m.insts))
	for _, i := range m.insts {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memInstitutionRepo) Update(_ context.Context, inst *model.Institution) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.insts[inst.ID] = *inst
	return nil
}

func (m *memInstitutionRepo) UpsertByCode(_ context.Context, inst *model.Institution) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, i := range m.insts {
		if i.Code == inst.Code {
			inst.ID = i.ID
			m.insts[inst.ID] = *inst
			return nil
		}
	}
	return m.Create(context.Background(), inst)
}

// --- assignments ---

type memAssignmentRepo struct {
	rows     []model.Assignment
	roleRepo *memRoleRepo
	instRepo *memInstitutionRepo
	nextID   uint
	failWith error
}

func newMemAssignmentRepo(roles *memRoleRepo, insts *memInstitutionRepo) *memAssignmentRepo {
	return &memAssignmentRepo{roleRepo: roles, instRepo: insts}
}

func (m *memAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memAssignmentRepo) DeactivatePair(_ context.Context, userID, institutionID uint) error {
	if m.failWith != nil {
		return m.failWith
	}
	for i := range m.rows {
		if m.rows[i].UserID == userID && m.rows[i].InstitutionID == institutionID {
			m.rows[i].IsActive = false
		}
	}
	return nil
}

func (m *memAssignmentRepo) hydrate(a model.Assignment) model.Assignment {
	if m.roleRepo != nil {
		if r, ok := m.roleRepo.roles[a.RoleID]; ok {
			a.Role = *r
		}
	}
	if m.instRepo != nil {
		if i, ok := m.instRepo.insts[a.InstitutionID]; ok {
			a.Institution = i
		}
	}
	return a
}

func (m *memAssignmentRepo) ActiveForPair(_ context.Context, userID, institutionID uint) (*model.Assignment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	// newest active row wins
	for i := len(m.rows) - 1; i >= 0; i-- {
		a := m.rows[i]
		if a.UserID == userID && a.InstitutionID == institutionID && a.IsActive {
			h := m.hydrate(a)
			return &h, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memAssignmentRepo) ListActiveForUser(_ context.Context, userID uint) ([]model.Assignment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []model.Assignment
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].UserID == userID && m.rows[i].IsActive {
			out = append(out, m.hydrate(m.rows[i]))
		}
	}
	return out, nil
}

func (m *memAssignmentRepo) ActivePermissionCodes(_ context.Context, userID uint) ([]string, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	seen := make(map[string]bool)
	var codes []string
	for _, a := range m.rows {
		if a.UserID != userID || !a.IsActive {
			continue
		}
		if r, ok := m.roleRepo.roles[a.RoleID]; ok {
			for _, p := range r.Permissions {
				if !seen[p.Code] {
					seen[p.Code] = true
					codes = append(codes, p.Code)
				}
			}
		}
	}
	return codes, nil
}

func (m *memAssignmentRepo) ListActiveForInstitution(_ context.Context, institutionID uint) ([]model.Assignment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []model.Assignment
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].InstitutionID == institutionID && m.rows[i].IsActive {
			out = append(out, m.hydrate(m.rows[i]))
		}
	}
	return out, nil
}

// --- performance ---

type memPerformanceRepo struct {
	records  []model.PerformanceRecord
	vars     map[uint]model.PerformanceVariable
	insts    *memInstitutionRepo
	nextRec  uint
	nextVar  uint
	failWith error
}

func newMemPerformanceRepo(insts *memInstitutionRepo) *memPerformanceRepo {
	return &memPerformanceRepo{vars: make(map[uint]model.PerformanceVariable), insts: insts}
}

func (m *memPerformanceRepo) addVariable(code, name, category string) model.PerformanceVariable {
	m.nextVar++
	v := model.PerformanceVariable{ID: m.nextVar, Code: code, Name: name, Category: category}
	m.vars[v.ID] = v
	return v
}

func (m *memPerformanceRepo) CreateRecord(_ context.Context, rec *model.PerformanceRecord) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.nextRec++
	rec.ID = m.nextRec
	m.records = append(m.records, *rec)
	return nil
}

func (m *memPerformanceRepo) UpsertRecordByPeriod(_ context.Context, rec *model.PerformanceRecord) error {
	if m.failWith != nil {
		return m.failWith
	}
	for i := range m.records {
		r := &m.records[i]
		if r.InstitutionID == rec.InstitutionID && r.VariableID == rec.VariableID &&
			r.Month == rec.Month && r.Year == rec.Year {
			rec.ID = r.ID
			*r = *rec
			return nil
		}
	}
	return m.CreateRecord(context.Background(), rec)
}

func (m *memPerformanceRepo) matches(r model.PerformanceRecord, f repository.RecordFilter) bool {
	if f.InstitutionID != 0 && r.InstitutionID != f.InstitutionID {
		return false
	}
	if f.VariableID != 0 && r.VariableID != f.VariableID {
		return false
	}
	if f.Month != "" && r.Month != f.Month {
		return false
	}
	if f.Year != 0 && r.Year != f.Year {
		return false
	}
	return true
}

func (m *memPerformanceRepo) ListRecords(_ context.Context, f repository.RecordFilter, _, _ int) ([]model.PerformanceRecord, int64, error) {
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
	var out []model.PerformanceRecord
	for _, r := range m.records {
		if m.matches(r, f) {
			if v, ok := m.vars[r.VariableID]; ok {
				r.Variable = v
			}
			if m.insts != nil {
				if inst, ok := m.insts.insts[r.InstitutionID]; ok {
					r.Institution = inst
				}
			}
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memPerformanceRepo) CountByStatus(_ context.Context, f repository.RecordFilter) ([]model.StatusCount, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	counts := make(map[string]int64)
	for _, r := range m.records {
		if m.matches(r, f) {
			counts[r.Status]++
		}
	}
	var out []model.StatusCount
	for status, n := range counts {
		out = append(out, model.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (m *memPerformanceRepo) HealthByInstitution(_ context.Context, month string, year int) ([]model.InstitutionHealth, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	byInst := make(map[uint]*model.InstitutionHealth)
	for _, r := range m.records {
		if month != "" && r.Month != month {
			continue
		}
		if year != 0 && r.Year != year {
			continue
		}
		h, ok := byInst[r.InstitutionID]
		if !ok {
			h = &model.InstitutionHealth{InstitutionID: r.InstitutionID}
			byInst[r.InstitutionID] = h
		}
		switch r.Status {
		case model.StatusGreen:
			h.Green++
		case model.StatusYellow:
			h.Yellow++
		case model.StatusRed:
			h.Red++
		}
	}
	var out []model.InstitutionHealth
	for _, h := range byInst {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstitutionID < out[j].InstitutionID })
	return out, nil
}

func (m *memPerformanceRepo) GetVariable(_ context.Context, id uint) (*model.PerformanceVariable, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	v, ok := m.vars[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (m *memPerformanceRepo) GetVariableByCode(_ context.Context, code string) (*model.PerformanceVariable, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, v := range m.vars {
		if v.Code == code {
			return &v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPerformanceRepo) ListVariables(_ context.Context) ([]model.PerformanceVariable, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]model.PerformanceVariable, 0, len(m.vars))
	for _, v := range m.vars {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPerformanceRepo) UpsertVariableByCode(_ context.Context, v *model.PerformanceVariable) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, existing := range m.vars {
		if existing.Code == v.Code {
			v.ID = existing.ID
			m.vars[v.ID] = *v
			return nil
		}
	}
	m.nextVar++
	v.ID = m.nextVar
	m.vars[v.ID] = *v
	return nil
}

// --- smartsheet mirror ---

type recordingSheet struct {
	pushed   []*model.PerformanceRecord
	failWith error
}

func (s *recordingSheet) TestConnection(_ context.Context) (*ConnectionStatus, error) {
	return &ConnectionStatus{Connected: true}, nil
}

func (s *recordingSheet) SyncPerformance(_ context.Context, _ *uint) (*SyncResult, error) {
	return &SyncResult{}, nil
}

func (s *recordingSheet) PushRecord(_ context.Context, rec *model.PerformanceRecord) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.pushed = append(s.pushed, rec)
	return nil
}

// --- tx manager / audit ---

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(_ context.Context, _ *uint, action, _, _ string, _ any, _ string) {
	a.actions = append(a.actions, action)
}

func (a *recordingAudit) GetAuditLogs(_ context.Context, _, _ int) ([]AuditLogResponse, int64, error) {
	return nil, 0, nil
}
