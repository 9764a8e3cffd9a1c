package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"expense-wallet/internal/models"
	"expense-wallet/internal/screens"
)

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: wallet %s\n", commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

// oneArg parses flags and returns the single positional argument.
func oneArg(a *app, name string, args []string) (string, error) {
	fs := newFlagSet(a, name)
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(a.stdout, "Usage: wallet %s\n", commands[name].usage)
		return "", fmt.Errorf("%s takes exactly one argument", name)
	}
	return fs.Arg(0), nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "register")
	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Full name")
	dob := fs.String("dob", "", "Date of birth, digits YYYYMMDD or YYYY-MM-DD")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := screens.RegisterForm{Email: *email, FullName: *name, DateOfBirth: *dob, Password: *passwordFlag, ConfirmPassword: *passwordFlag}
	if form.Password == "" {
		var err error
		if form.Password, err = a.readPassword("Password: "); err != nil {
			return err
		}
		if form.ConfirmPassword, err = a.readPassword("Confirm Password: "); err != nil {
			return err
		}
	}

	c := screens.NewRegister(a.client, a.store, a.log)
	out, err := await(ctx, c.View(), c.Submit(ctx, form))
	if err != nil {
		return err
	}
	a.ui.message(out.Message)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fmt.Fprintf(a.stdout, "Usage: wallet %s\n", commands["login"].usage)
		return fmt.Errorf("missing required flags: email")
	}

	password := *passwordFlag
	if password == "" {
		var err error
		if password, err = a.readPassword("Password: "); err != nil {
			return err
		}
	}

	c := screens.NewLogin(a.sessions)
	if _, err := await(ctx, c.View(), c.Submit(ctx, *email, password)); err != nil {
		return err
	}
	a.ui.message("Logged in as " + strings.TrimSpace(*email))
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	c := screens.NewHome(a.sessions)
	out, err := await(ctx, c.View(), c.Logout(ctx))
	if err != nil {
		return err
	}
	a.ui.message(out.Message)
	return nil
}

func cmdStatus(ctx context.Context, a *app, args []string) error {
	_, ok, err := a.store.AuthHeader()
	if err != nil {
		return err
	}
	uid, err := a.store.UserID()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Server: %s\n", a.client.BaseURL())
	if ok {
		fmt.Fprintln(a.stdout, "Logged in: yes")
	} else {
		fmt.Fprintln(a.stdout, "Logged in: no")
	}
	fmt.Fprintf(a.stdout, "User ID: %d\n", uid)
	keys, err := a.store.StoredKeys()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Stored keys: %s\n", strings.Join(keys, ", "))
	return nil
}

func cmdBudgets(ctx context.Context, a *app, args []string) error {
	c := screens.NewBudgetList(a.client)
	data, err := await(ctx, c.View(), c.Load(ctx))
	if err != nil {
		return err
	}
	a.ui.budgets(data)
	return nil
}

func cmdBudget(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(a, "budget", args)
	if err != nil {
		return err
	}
	c := screens.NewBudgetDetail(a.client, id)
	data, err := await(ctx, c.View(), c.Load(ctx))
	if err != nil {
		return err
	}
	a.ui.budget(data)
	return nil
}

func cmdCreateBudget(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "create-budget")
	name := fs.String("name", "", "Budget name")
	limit := fs.String("limit", "", "Limit amount")
	start := fs.String("start", "", "Start date YYYY-MM-DD")
	end := fs.String("end", "", "End date YYYY-MM-DD")
	cats := fs.String("categories", "", "Comma separated categories to count; empty counts all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := screens.BudgetForm{Name: *name, Limit: *limit, StartDate: *start, EndDate: *end}
	for _, c := range strings.Split(*cats, ",") {
		if c = strings.TrimSpace(c); c != "" {
			form.Categories = append(form.Categories, c)
		}
	}

	c := screens.NewCreateBudget(a.client, a.store)
	out, err := await(ctx, c.View(), c.Submit(ctx, form))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Budget %s created\n", out.ID)
	return nil
}

func cmdDeleteBudget(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(a, "delete-budget", args)
	if err != nil {
		return err
	}
	c := screens.NewBudgetDetail(a.client, id)
	out, err := await(ctx, c.Actions(), c.Delete(ctx))
	if err != nil {
		return err
	}
	a.ui.message(out.Message)
	return nil
}

func cmdReport(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(a, "report", args)
	if err != nil {
		return err
	}
	c := screens.NewBudgetReport(a.client, id)
	data, err := await(ctx, c.View(), c.Load(ctx))
	if err != nil {
		return err
	}
	a.ui.report(data)
	return nil
}

func cmdDownloadReport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "download-report")
	dir := fs.String("dir", a.cfg.DownloadDir, "Directory to save the spreadsheet in")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(a.stdout, "Usage: wallet %s\n", commands["download-report"].usage)
		return fmt.Errorf("download-report takes exactly one argument")
	}

	c := screens.NewBudgetReport(a.client, fs.Arg(0))
	out, err := await(ctx, c.Actions(), c.Download(ctx, *dir))
	if err != nil {
		return err
	}
	a.ui.message(out.Message)
	return nil
}

func cmdReceipts(ctx context.Context, a *app, args []string) error {
	c := screens.NewReceiptList(a.client)
	data, err := await(ctx, c.View(), c.Load(ctx))
	if err != nil {
		return err
	}
	a.ui.receipts(data)
	return nil
}

func cmdReceipt(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(a, "receipt", args)
	if err != nil {
		return err
	}
	c := screens.NewReceiptDetail(a.client, id)
	data, err := await(ctx, c.View(), c.Load(ctx))
	if err != nil {
		return err
	}
	a.ui.receipt(data)
	return nil
}

func cmdSetCategory(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "set-category")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fmt.Fprintf(a.stdout, "Usage: wallet %s\n", commands["set-category"].usage)
		return fmt.Errorf("set-category takes a receipt id and a category")
	}

	c := screens.NewReceiptDetail(a.client, fs.Arg(0))
	out, err := await(ctx, c.Actions(), c.UpdateCategory(ctx, fs.Arg(1)))
	if err != nil {
		return err
	}
	a.ui.message(out.Message)
	return nil
}

func cmdScan(ctx context.Context, a *app, args []string) error {
	path, err := oneArg(a, "scan", args)
	if err != nil {
		return err
	}
	c := screens.NewReceiptScanner(a.client)
	out, err := await(ctx, c.View(), c.Upload(ctx, path))
	if err != nil {
		return err
	}
	a.ui.message(out.Message)

	// Follow the scanner to the new receipt like the detail screen would.
	detail := screens.NewReceiptDetail(a.client, out.ID)
	data, err := await(ctx, detail.View(), detail.Load(ctx))
	if err != nil {
		return err
	}
	a.ui.receipt(data)
	return nil
}

func cmdCategories(ctx context.Context, a *app, args []string) error {
	for _, c := range models.Categories {
		fmt.Fprintln(a.stdout, c)
	}
	return nil
}
