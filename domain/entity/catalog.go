package entity

// DefaultCron is the recurring schedule used when a descriptor sets none.
const DefaultCron = "0 */8 * * *"

// Provider lists per vertical.
var (
	ATSProviders         = []string{"ashby", "bamboohr", "greenhouse", "lever", "workable"}
	CRMProviders         = []string{"attio", "close", "hubspot", "pipedrive", "zendesk", "zoho"}
	FileStorageProviders = []string{"box", "dropbox", "googledrive", "onedrive", "sharepoint"}
	HRISProviders        = []string{"bamboohr", "deel", "gusto", "hibob", "sage"}
)

func ref(t Type) *Type { return &t }

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		if p != drop {
			out = append(out, p)
		}
	}
	return out
}

// Builtin returns the catalogue of entity types syncd ships with.
func Builtin() Catalog {
	return NewCatalog(
		Descriptor{
			Type:     ATSAttachment,
			Table:    "ats_attachments",
			IDColumn: "id_ats_attachment",
			Fields: []FieldSpec{
				{Name: "file_url", Column: "file_url", Kind: KindString},
				{Name: "file_name", Column: "file_name", Kind: KindString},
				{Name: "file_type", Column: "file_type", Kind: KindString},
				{Name: "remote_created_at", Column: "remote_created_at", Kind: KindTime},
				{Name: "remote_modified_at", Column: "remote_modified_at", Kind: KindTime},
				{Name: "candidate_id", Column: "id_ats_candidate", Kind: KindString},
			},
			Providers: ATSProviders,
			JobName:   "ats-sync-attachments",
			Cron:      DefaultCron,
		},
		Descriptor{
			Type:     ATSRejectReason,
			Table:    "ats_reject_reasons",
			IDColumn: "id_ats_reject_reason",
			Fields: []FieldSpec{
				{Name: "name", Column: "name", Kind: KindString},
			},
			Providers: ATSProviders,
			JobName:   "ats-sync-rejectreasons",
			Cron:      DefaultCron,
		},
		Descriptor{
			Type:     CRMUser,
			Table:    "crm_users",
			IDColumn: "id_crm_user",
			Fields: []FieldSpec{
				{Name: "name", Column: "name", Kind: KindString},
				{Name: "email", Column: "email", Kind: KindString},
			},
			Providers: CRMProviders,
			JobName:   "crm-sync-users",
			Cron:      DefaultCron,
		},
		Descriptor{
			Type:     CRMDeal,
			Table:    "crm_deals",
			IDColumn: "id_crm_deal",
			Fields: []FieldSpec{
				{Name: "name", Column: "name", Kind: KindString},
				{Name: "description", Column: "description", Kind: KindString},
				{Name: "amount", Column: "amount", Kind: KindNumber},
				{Name: "user_id", Column: "id_crm_user", Kind: KindString, Ref: ref(CRMUser)},
				{Name: "company_id", Column: "id_crm_company", Kind: KindString},
				{Name: "stage_id", Column: "id_crm_deals_stage", Kind: KindString, Ref: ref(CRMStage)},
			},
			Providers: CRMProviders,
			JobName:   "crm-sync-deals",
			Cron:      DefaultCron,
		},
		Descriptor{
			Type:     CRMStage,
			Table:    "crm_deals_stages",
			IDColumn: "id_crm_deals_stage",
			Fields: []FieldSpec{
				{Name: "stage_name", Column: "stage_name", Kind: KindString},
			},
			Providers: without(CRMProviders, "zoho"),
			JobName:   "crm-sync-stages",
			Cron:      DefaultCron,
			Scope:     &Scope{Parent: CRMDeal, LinkField: "stage_id"},
		},
		Descriptor{
			Type:     CRMNote,
			Table:    "crm_notes",
			IDColumn: "id_crm_note",
			Fields: []FieldSpec{
				{Name: "content", Column: "content", Kind: KindString},
				{Name: "contact_id", Column: "id_crm_contact", Kind: KindString},
				{Name: "company_id", Column: "id_crm_company", Kind: KindString},
				{Name: "deal_id", Column: "id_crm_deal", Kind: KindString, Ref: ref(CRMDeal)},
				{Name: "user_id", Column: "id_crm_user", Kind: KindString, Ref: ref(CRMUser)},
			},
			Providers: CRMProviders,
			JobName:   "crm-sync-notes",
			Cron:      DefaultCron,
		},
		Descriptor{
			Type:     FileStorageUser,
			Table:    "fs_users",
			IDColumn: "id_fs_user",
			Fields: []FieldSpec{
				{Name: "name", Column: "name", Kind: KindString},
				{Name: "email", Column: "email", Kind: KindString},
				{Name: "is_me", Column: "is_me", Kind: KindBool},
			},
			Providers: FileStorageProviders,
			JobName:   "filestorage-sync-users",
			Cron:      DefaultCron,
		},
		Descriptor{
			Type:     HRISEmployeePayrollRun,
			Table:    "hris_employee_payroll_runs",
			IDColumn: "id_hris_employee_payroll_run",
			Fields: []FieldSpec{
				{Name: "employee_id", Column: "id_hris_employee", Kind: KindString},
				{Name: "payroll_run_id", Column: "id_hris_payroll_run", Kind: KindString},
				{Name: "gross_pay", Column: "gross_pay", Kind: KindNumber},
				{Name: "net_pay", Column: "net_pay", Kind: KindNumber},
				{Name: "start_date", Column: "start_date", Kind: KindTime},
				{Name: "end_date", Column: "end_date", Kind: KindTime},
				{Name: "check_date", Column: "check_date", Kind: KindTime},
			},
			Providers: HRISProviders,
			JobName:   "hris-sync-employeepayrollruns",
			Cron:      DefaultCron,
		},
	)
}
