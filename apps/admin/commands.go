package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/user"
	archivesvc "github.com/ficct/horarios/services/archive"
	exportsvc "github.com/ficct/horarios/services/export"
)

type archiver interface {
	Save(ctx context.Context, term schedule.AcademicTerm, filter schedule.Filter, tt schedule.Timetable) (string, error)
	List(ctx context.Context, term string) ([]archivesvc.Entry, error)
}

func newArchive(ctx context.Context, conf *core.Config, logger core.Logger) (archiver, error) {
	a, err := archivesvc.NewArchive(conf, logger)
	if err != nil {
		return nil, err
	}
	if err := a.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Session

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	sess, err := cli.client.Login(ctx, user.Credentials{Username: uname, Password: pwd})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s logged in as %s (%s)\n", cli.color.Green("✔"), sess.User.Name, sess.User.Username)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	if !cli.session.Active() {
		fmt.Fprintln(cli.out, "not logged in")
		return nil
	}
	if err := cli.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "logged out")
	return nil
}

func (cli *commandLine) whoami() error {
	sess, ok := cli.session.Current()
	if !ok {
		return errNoSession
	}
	fmt.Fprintf(cli.out, "%s (%s) roles: %s, since %s\n",
		sess.User.Name, sess.User.Username, strings.Join(sess.User.Roles, ","), sess.StartedAt.Format("2006-01-02 15:04"))
	return nil
}

// Catalogs

func (cli *commandLine) terms(ctx context.Context) error {
	cat, err := cli.view.Catalog(ctx)
	if err != nil {
		return err
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\tGESTION\tINICIO\tFIN")
	for _, t := range cat.Terms {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t, t.StartDate, t.EndDate)
	}
	return w.Flush()
}

func (cli *commandLine) slots(ctx context.Context) error {
	cat, err := cli.view.Catalog(ctx)
	if err != nil {
		return err
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\tDIA\tHORA")
	for _, s := range cat.Slots {
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Day.Name(), s.Block())
	}
	return w.Flush()
}

func (cli *commandLine) teachers(ctx context.Context, name string, limit int) error {
	cat, err := cli.view.Catalog(ctx)
	if err != nil {
		return err
	}
	teachers := cat.Teachers
	if strings.TrimSpace(name) != "" {
		teachers = cat.SuggestTeachers(name, limit)
		if len(teachers) == 0 {
			fmt.Fprintf(cli.out, "no teacher matches %q\n", name)
			return nil
		}
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\tNOMBRE\tESPECIALIDAD")
	for _, t := range teachers {
		fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, t.Name, t.Specialty)
	}
	return w.Flush()
}

// Timetable

func (cli *commandLine) timetable(ctx context.Context, opts timetableOptions) error {
	ctrl := cli.view.Controller()
	if opts.filter.TermID == 0 {
		// loads the catalogs once and picks the latest term
		if err := cli.view.Mount(ctx); err != nil {
			return err
		}
	}
	cat, err := cli.view.Catalog(ctx)
	if err != nil {
		return err
	}
	if opts.filter.TermID != 0 {
		if _, ok := cat.TermByID(opts.filter.TermID); !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "idgestion", Error: "unknown term"})
		}
		if err := ctrl.SelectTerm(ctx, opts.filter.TermID); err != nil {
			return err
		}
	}
	term, ok := cat.TermByID(cli.view.Filter().TermID)
	if !ok {
		fmt.Fprintln(cli.out, "no terms yet")
		return nil
	}

	if opts.teacherName != "" {
		found := cat.SuggestTeachers(opts.teacherName, 1)
		if len(found) == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "iddocente", Error: fmt.Sprintf("no teacher matches %q", opts.teacherName)})
		}
		opts.filter.TeacherID = found[0].ID
	}
	// the controller keeps its secondary filter across term changes
	switch key, id := opts.filter.Secondary(); key {
	case schedule.BySubject:
		err = ctrl.SelectSubject(ctx, id)
	case schedule.ByTeacher:
		err = ctrl.SelectTeacher(ctx, id)
	case schedule.ByClassroom:
		err = ctrl.SelectClassroom(ctx, id)
	case schedule.ByGroup:
		err = ctrl.SelectGroup(ctx, id)
	default:
		if active, _ := cli.view.Filter().Secondary(); active != "" {
			err = ctrl.ClearFilters(ctx)
		}
	}
	if err != nil {
		return err
	}

	title := describe(cat, term, cli.view.Filter())
	tt := cli.view.Timetable()
	if err := cli.renderTimetable(title, tt); err != nil {
		return err
	}

	if opts.xlsxPath != "" {
		if err := writeXLSXFile(opts.xlsxPath, tt, title); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s written to %s\n", cli.color.Green("✔"), opts.xlsxPath)
	}
	if opts.archive {
		a, err := newArchiveFunc(ctx, cli.conf, cli.logger)
		if err != nil {
			return err
		}
		key, err := a.Save(ctx, term, cli.view.Filter(), tt)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s archived as %s\n", cli.color.Green("✔"), key)
	}
	return nil
}

func (cli *commandLine) archives(ctx context.Context, term string) error {
	a, err := newArchiveFunc(ctx, cli.conf, cli.logger)
	if err != nil {
		return err
	}
	entries, err := a.List(ctx, strings.TrimSpace(term))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cli.out, "nothing archived yet")
		return nil
	}
	w := cli.table()
	fmt.Fprintln(w, "KEY\tSIZE\tDATE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\n", e.Key, e.Size, e.LastModified.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// Assignments

func (cli *commandLine) assign(ctx context.Context, na schedule.NewAssignment) error {
	// the reload after a write refreshes this term
	if na.TermID > 0 {
		if err := cli.view.Controller().SelectTerm(ctx, na.TermID); err != nil {
			return err
		}
	}
	asg, err := cli.view.Builder().Create(ctx, na)
	if err != nil {
		return cli.reportConflicts(err)
	}
	fmt.Fprintf(cli.out, "%s assignment %d created: %s %s, %s, %s\n",
		cli.color.Green("✔"), asg.ID, asg.SubjectCode, asg.GroupLabel, asg.TeacherName, asg.ClassroomNumber)
	return nil
}

func (cli *commandLine) reslot(ctx context.Context, id int, slotIDs []int) error {
	asg, err := cli.view.Builder().Edit(ctx, id, slotIDs)
	if err != nil {
		return cli.reportConflicts(err)
	}
	fmt.Fprintf(cli.out, "%s assignment %d now uses slots %s\n", cli.color.Green("✔"), asg.ID, joinInts(asg.SlotIDs()))
	return nil
}

func (cli *commandLine) unassign(ctx context.Context, id int) error {
	if err := cli.view.Builder().Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s assignment %d deleted\n", cli.color.Green("✔"), id)
	return nil
}

func (cli *commandLine) deleteGroup(ctx context.Context, id int) error {
	if err := cli.client.DeleteGroup(ctx, id); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	fmt.Fprintf(cli.out, "%s group %d deleted\n", cli.color.Green("✔"), id)
	return nil
}

func (cli *commandLine) deleteTerm(ctx context.Context, id int) error {
	if err := cli.client.DeleteTerm(ctx, id); err != nil {
		return errors.Wrap(err, "deleting term")
	}
	cli.view.TermDeleted(id)
	fmt.Fprintf(cli.out, "%s term %d deleted\n", cli.color.Green("✔"), id)
	return nil
}

// reportConflicts prints the reporter's conflicts, if any, and passes `err` through.
func (cli *commandLine) reportConflicts(err error) error {
	rep := cli.view.Reporter()
	if rep.HasConflicts() {
		fmt.Fprintln(cli.out, cli.color.Red("conflicts:"))
		if rErr := rep.Render(cli.out); rErr != nil {
			return rErr
		}
	}
	return err
}

// Rendering

func (cli *commandLine) table() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
}

// renderTimetable lists the grid row by row: one line per occupant, blocks first, then days.
func (cli *commandLine) renderTimetable(title string, tt schedule.Timetable) error {
	fmt.Fprintln(cli.out, cli.color.Bold(title))
	if tt.IsEmpty() {
		fmt.Fprintln(cli.out, "no assignments")
		return nil
	}

	w := cli.table()
	fmt.Fprintln(w, "HORA\tDIA\tMATERIA\tDOCENTE\tAULA")
	for _, b := range tt.Blocks {
		for _, d := range tt.Days() {
			for _, occ := range tt.Cell(d, b) {
				fmt.Fprintf(w, "%s\t%s\t%s - %s\t%s\t%s\n", b, d.Name(), occ.SubjectCode, occ.GroupLabel, occ.TeacherName, occ.ClassroomNumber)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d entries\n", tt.Len())
	return nil
}

func describe(cat *schedule.Catalog, term schedule.AcademicTerm, f schedule.Filter) string {
	title := "Gestión " + term.String()
	key, id := f.Secondary()
	switch key {
	case schedule.BySubject:
		if s, ok := cat.SubjectByID(id); ok {
			return title + " / " + s.Code + " " + s.Name
		}
	case schedule.ByTeacher:
		if t, ok := cat.TeacherByID(id); ok {
			return title + " / " + t.Name
		}
	case schedule.ByClassroom:
		if c, ok := cat.ClassroomByID(id); ok {
			return title + " / Aula " + string(c.Number)
		}
	case schedule.ByGroup:
		if g, ok := cat.GroupByID(id); ok {
			return title + " / Grupo " + g.Label
		}
	}
	if key != "" {
		return fmt.Sprintf("%s / %s %d", title, key, id)
	}
	return title
}

func writeXLSXFile(path string, tt schedule.Timetable, title string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating workbook file")
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = errors.Wrap(cErr, "closing workbook file")
		}
	}()
	return exportsvc.WriteXLSX(f, tt, title)
}

func joinInts(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ",")
}
