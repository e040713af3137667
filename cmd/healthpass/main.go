package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/healthpass/healthpass/internal/domain/patient"
	"github.com/healthpass/healthpass/internal/domain/prescription"
	"github.com/healthpass/healthpass/pkg/database"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "healthpass",
		Short:         "Prescription pickup tracking for pharmacy staff",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		migrateCmd(),
		registerPatientCmd(),
		createPrescriptionCmd(),
		issueCodeCmd(),
		notifyCmd(),
		dispenseCmd(),
		listPrescriptionsCmd(),
		exportReportCmd(),
		lapseExpiredCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := database.Migrate(a.db, a.log); err != nil {
				return err
			}
			fmt.Println("Database schema is up to date.")
			return nil
		},
	}
}

func registerPatientCmd() *cobra.Command {
	var card, first, last, dob, phone, email, actor string

	cmd := &cobra.Command{
		Use:   "register-patient",
		Short: "Register a new patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			born, err := requireDate(dob, "Date of birth")
			if err != nil {
				return err
			}
			actorID, err := requireUUID(actor, "Your staff ID")
			if err != nil {
				return err
			}

			p, err := a.patientSvc.RegisterPatient(context.Background(), &patient.RegisterPatientCommand{
				HealthCardNo: requireString(card, "Health card number"),
				FirstName:    requireString(first, "First name"),
				LastName:     requireString(last, "Last name"),
				DateOfBirth:  born,
				Phone:        phone,
				Email:        email,
			}, actorID)
			if err != nil {
				return friendly(err)
			}

			fmt.Printf("Patient %s registered with ID %s.\n", p.FullName(), p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&card, "card", "", "raw health card number (never stored)")
	cmd.Flags().StringVar(&first, "first", "", "first name")
	cmd.Flags().StringVar(&last, "last", "", "last name")
	cmd.Flags().StringVar(&dob, "dob", "", "date of birth, YYYY-MM-DD")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number (optional)")
	cmd.Flags().StringVar(&email, "email", "", "email address (optional)")
	cmd.Flags().StringVar(&actor, "actor", "", "staff ID performing the registration")
	return cmd
}

func createPrescriptionCmd() *cobra.Command {
	var card, doctor, medication, dosage, instructions string
	var validity time.Duration

	cmd := &cobra.Command{
		Use:   "create-prescription",
		Short: "Create a prescription for a registered patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			pat, err := a.patientSvc.GetByHealthCard(ctx, requireString(card, "Patient health card number"))
			if err != nil {
				return friendly(err)
			}
			doctorID, err := requireUUID(doctor, "Doctor ID")
			if err != nil {
				return err
			}

			p, err := a.rxSvc.CreatePrescription(ctx, &prescription.CreatePrescriptionCommand{
				PatientID:    pat.ID,
				DoctorID:     doctorID,
				Medication:   requireString(medication, "Medication"),
				Dosage:       requireString(dosage, "Dosage"),
				Instructions: instructions,
				Validity:     validity,
			})
			if err != nil {
				return friendly(err)
			}

			fmt.Printf("Prescription %s created for %s, valid until %s.\n",
				p.ID, pat.FullName(), p.ExpiresAt.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}

	cmd.Flags().StringVar(&card, "card", "", "patient health card number")
	cmd.Flags().StringVar(&doctor, "doctor", "", "issuing doctor ID")
	cmd.Flags().StringVar(&medication, "medication", "", "medication name")
	cmd.Flags().StringVar(&dosage, "dosage", "", "dosage, e.g. \"500mg twice daily\"")
	cmd.Flags().StringVar(&instructions, "instructions", "", "instructions (optional)")
	cmd.Flags().DurationVar(&validity, "validity", 7*24*time.Hour, "how long the prescription stays valid")
	return cmd
}

func issueCodeCmd() *cobra.Command {
	var id, actor string

	cmd := &cobra.Command{
		Use:   "issue-code",
		Short: "Issue a pickup code and fetch its QR image",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			rxID, err := requireUUID(id, "Prescription ID")
			if err != nil {
				return err
			}
			actorID, err := requireUUID(actor, "Your staff ID")
			if err != nil {
				return err
			}

			p, err := a.rxSvc.IssuePickupCode(ctx, rxID, actorID)
			if err != nil {
				return friendly(err)
			}
			fmt.Printf("Pickup code %s issued for prescription %s.\n", *p.PickupCode, p.ID)

			// The QR render may fail independently of code issuance; the code
			// above stays valid and the render can be retried.
			p, err = a.rxSvc.RequestQR(ctx, rxID, actorID)
			if err != nil {
				fmt.Printf("QR image could not be generated: %v\nRe-run issue-code or notify without QR.\n", err)
				return nil
			}
			fmt.Printf("QR image stored at %s.\n", p.QRPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "prescription ID")
	cmd.Flags().StringVar(&actor, "actor", "", "staff ID issuing the code")
	return cmd
}

func notifyCmd() *cobra.Command {
	var id, actor string
	var attachQR bool

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Tell the patient their prescription is ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			rxID, err := requireUUID(id, "Prescription ID")
			if err != nil {
				return err
			}
			actorID, err := requireUUID(actor, "Your staff ID")
			if err != nil {
				return err
			}

			err = a.rxSvc.Notify(ctx, rxID, attachQR, actorID)
			if errors.Is(err, patient.ErrMissingContact) {
				// Recoverable: collect the missing contact, persist it, retry once.
				p, getErr := a.rxSvc.Get(ctx, rxID)
				if getErr != nil {
					return friendly(getErr)
				}
				if err := collectContact(ctx, a, p.PatientID, actorID); err != nil {
					return err
				}
				err = a.rxSvc.Notify(ctx, rxID, attachQR, actorID)
			}
			if err != nil {
				return friendly(err)
			}

			fmt.Println("Patient notified.")
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "prescription ID")
	cmd.Flags().BoolVar(&attachQR, "attach-qr", false, "attach the QR image when the channel supports it")
	cmd.Flags().StringVar(&actor, "actor", "", "staff ID sending the notification")
	return cmd
}

func collectContact(ctx context.Context, a *app, patientID, actorID uuid.UUID) error {
	fmt.Println("The patient has no contact info for the configured channel.")
	cmd := &patient.UpdateContactCommand{}
	if phone := promptOptional("Phone"); phone != "" {
		cmd.Phone = &phone
	}
	if email := promptOptional("Email"); email != "" {
		cmd.Email = &email
	}
	if cmd.Phone == nil && cmd.Email == nil {
		return fmt.Errorf("no contact info provided")
	}
	if _, err := a.patientSvc.UpdateContact(ctx, patientID, cmd, actorID); err != nil {
		return friendly(err)
	}
	fmt.Println("Contact info saved.")
	return nil
}

func dispenseCmd() *cobra.Command {
	var id, code, pharmacist string

	cmd := &cobra.Command{
		Use:   "dispense",
		Short: "Dispense a prescription against its pickup code",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			rxID, err := requireUUID(id, "Prescription ID")
			if err != nil {
				return err
			}
			pharmacistID, err := requireUUID(pharmacist, "Pharmacist ID")
			if err != nil {
				return err
			}

			p, err := a.rxSvc.Dispense(context.Background(), rxID,
				requireString(code, "Pickup code"), pharmacistID)
			if err != nil {
				return friendly(err)
			}

			fmt.Printf("Prescription %s dispensed at %s.\n",
				p.ID, p.DispensedAt.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "prescription ID")
	cmd.Flags().StringVar(&code, "code", "", "pickup code presented by the patient")
	cmd.Flags().StringVar(&pharmacist, "pharmacist", "", "dispensing pharmacist ID")
	return cmd
}

func listPrescriptionsCmd() *cobra.Command {
	var card string

	cmd := &cobra.Command{
		Use:   "list-prescriptions",
		Short: "List a patient's prescriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			pat, err := a.patientSvc.GetByHealthCard(ctx, requireString(card, "Patient health card number"))
			if err != nil {
				return friendly(err)
			}

			list, err := a.rxSvc.ListByPatient(ctx, pat.ID)
			if err != nil {
				return friendly(err)
			}
			if len(list) == 0 {
				fmt.Printf("No prescriptions found for %s.\n", pat.FullName())
				return nil
			}

			fmt.Printf("Prescriptions for %s:\n", pat.FullName())
			for _, p := range list {
				code := "-"
				if p.PickupCode != nil {
					code = *p.PickupCode
				}
				fmt.Printf("- %s  %s (%s)  status=%s  code=%s  expires=%s\n",
					p.ID, p.Medication, p.Dosage, p.Status, code,
					p.ExpiresAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&card, "card", "", "patient health card number")
	return cmd
}

func exportReportCmd() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "export-report",
		Short: "Export dispensed prescriptions to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			actorID, err := requireUUID(actor, "Your staff ID")
			if err != nil {
				return err
			}

			path, rows, err := a.reportSvc.ExportDispensed(context.Background(), actorID)
			if err != nil {
				return friendly(err)
			}

			fmt.Printf("Exported %d dispensed prescriptions to %s.\n", rows, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "staff ID exporting the report")
	return cmd
}

func lapseExpiredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lapse-expired",
		Short: "Mark all prescriptions past their expiry as expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			count, err := a.rxSvc.LapseExpired(context.Background())
			if err != nil {
				return friendly(err)
			}

			fmt.Printf("Lapsed %d expired prescriptions.\n", count)
			return nil
		},
	}
}

// friendly turns domain sentinels into operator-facing messages. Anything
// unrecognized passes through unchanged.
func friendly(err error) error {
	switch {
	case errors.Is(err, patient.ErrNotFound):
		return fmt.Errorf("no patient found with that health card number")
	case errors.Is(err, patient.ErrAlreadyExists):
		return fmt.Errorf("a patient with that health card number is already registered")
	case errors.Is(err, prescription.ErrNotFound):
		return fmt.Errorf("no prescription found with that ID")
	case errors.Is(err, prescription.ErrExpired):
		return fmt.Errorf("the prescription has expired and cannot be processed")
	case errors.Is(err, prescription.ErrCodeMismatch):
		return fmt.Errorf("the pickup code does not match; check it and try again")
	case errors.Is(err, prescription.ErrNoPickupCode):
		return fmt.Errorf("no pickup code has been issued for this prescription yet")
	default:
		return err
	}
}
