package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Print Shop Production Scheduler",
    "description": "Equipment routing, day schedule grid and conflict detection for a decoration shop floor",
    "version": "1.0"
  },
  "basePath": "/",
  "tags": [
    {"name": "equipment"},
    {"name": "jobs"},
    {"name": "schedule"},
    {"name": "routing"},
    {"name": "stages"},
    {"name": "import"},
    {"name": "debug"}
  ],
  "paths": {
    "/api/equipment": {"get": {"tags": ["equipment"], "summary": "List equipment"}},
    "/api/equipment/{id}": {"patch": {"tags": ["equipment"], "summary": "Update equipment status or load"}},
    "/api/equipment/{id}/schedule": {"get": {"tags": ["equipment"], "summary": "Jobs on one machine for a day"}},
    "/api/jobs": {
      "get": {"tags": ["jobs"], "summary": "List production jobs"},
      "post": {"tags": ["jobs"], "summary": "Create a production job"}
    },
    "/api/jobs/{id}/schedule": {"post": {"tags": ["schedule"], "summary": "Schedule a job"}},
    "/api/jobs/{id}/unschedule": {"post": {"tags": ["schedule"], "summary": "Unschedule a job"}},
    "/api/jobs/{id}/move": {"post": {"tags": ["schedule"], "summary": "Move a scheduled job"}},
    "/api/jobs/{id}/status": {"post": {"tags": ["jobs"], "summary": "Advance a job's status"}},
    "/api/jobs/{id}/recommendations": {"get": {"tags": ["routing"], "summary": "Equipment recommendations for a job"}},
    "/api/jobs/{id}/stages": {"get": {"tags": ["stages"], "summary": "Post-scheduling stage progress"}},
    "/api/jobs/{id}/stages/{stage}": {"patch": {"tags": ["stages"], "summary": "Update one stage of a job"}},
    "/api/schedule/drop": {"post": {"tags": ["schedule"], "summary": "Apply a schedule-board drop"}},
    "/api/schedule/grid": {"get": {"tags": ["schedule"], "summary": "Day grid"}},
    "/api/schedule/conflicts": {"get": {"tags": ["schedule"], "summary": "Conflicts for a day"}},
    "/api/routing/queue": {"get": {"tags": ["routing"], "summary": "Routing queue"}},
    "/api/import": {"post": {"tags": ["import"], "summary": "Import CSV data"}},
    "/api/debug/compatibility": {"get": {"tags": ["debug"], "summary": "Debug compatibility"}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
