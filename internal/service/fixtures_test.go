package service

import (
	"time"

	"github.com/printshop/backend/internal/models"
)

var testNow = time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)

func testDate() time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func fixedClock() time.Time { return testNow }

func embroideryMachine(id string) models.Equipment {
	return models.Equipment{
		ID:          id,
		Name:        "Tajima " + id,
		Status:      models.EquipmentAvailable,
		Capacity:    480,
		CurrentLoad: 40,
		SetupTime:   30,
		MinQuantity: 12,
		MaxQuantity: 1000,
		Kind:        models.Embroidery{Heads: 6, MaxColors: 15},
	}
}

func screenPress(id string, automatic bool) models.Equipment {
	return models.Equipment{
		ID:          id,
		Name:        "M&R " + id,
		Status:      models.EquipmentAvailable,
		Capacity:    1200,
		CurrentLoad: 20,
		SetupTime:   45,
		MinQuantity: 24,
		MaxQuantity: 5000,
		Kind:        models.ScreenPrinting{Screens: 8, IsAutomatic: automatic},
	}
}

func pendingJob(id string, method models.DecorationMethod, quantity, minutes int) models.ProductionJob {
	return models.ProductionJob{
		ID:               id,
		ItemName:         "Item " + id,
		Quantity:         quantity,
		DueDate:          testDate().AddDate(0, 0, 5),
		Priority:         models.PriorityMedium,
		DecorationMethod: method,
		EstimatedMinutes: minutes,
		Status:           models.JobPending,
	}
}

func placed(job models.ProductionJob, equipmentID string, start time.Time) models.ProductionJob {
	end := start.Add(job.Duration())
	job.AssignedEquipmentID = &equipmentID
	job.ScheduledStart = &start
	job.ScheduledEnd = &end
	job.Status = models.JobScheduled
	return job
}
