package dto

import (
	"time"

	"trustbooks/internal/models"
)

type InvoiceResponse struct {
	ID              string            `json:"id"`
	FilePath        string            `json:"file_path"`
	Status          string            `json:"status"`
	RawText         *string           `json:"raw_text"`
	InvoiceNumber   *string           `json:"invoice_number"`
	InvoiceDate     *string           `json:"invoice_date"`
	VendorName      *string           `json:"vendor_name"`
	VendorGSTIN     *string           `json:"vendor_gstin"`
	TaxableValue    *float64          `json:"taxable_value"`
	GSTAmount       *float64          `json:"gst_amount"`
	InvoiceTotal    *float64          `json:"invoice_total"`
	PaymentTerms    *string           `json:"payment_terms"`
	InvoiceCurrency *string           `json:"invoice_currency"`
	Items           []models.LineItem `json:"items"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

func NewInvoiceResponse(inv *models.Invoice) InvoiceResponse {
	items := inv.Items
	if items == nil {
		items = []models.LineItem{}
	}
	return InvoiceResponse{
		ID:              inv.ID.String(),
		FilePath:        inv.FilePath,
		Status:          string(inv.Status),
		RawText:         inv.RawText,
		InvoiceNumber:   inv.InvoiceNumber,
		InvoiceDate:     inv.InvoiceDate,
		VendorName:      inv.VendorName,
		VendorGSTIN:     inv.VendorGSTIN,
		TaxableValue:    inv.TaxableValue,
		GSTAmount:       inv.GSTAmount,
		InvoiceTotal:    inv.InvoiceTotal,
		PaymentTerms:    inv.PaymentTerms,
		InvoiceCurrency: inv.InvoiceCurrency,
		Items:           items,
		CreatedAt:       inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       inv.UpdatedAt.Format(time.RFC3339),
	}
}
