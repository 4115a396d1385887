package sqlinline

const QResetUsage = `--sql b4d07a28-6c15-49e3-8f72-0da94b3c61e8
update profiles
set usage_count = 0, last_reset_date = current_date, updated_at = now()
where id = $1::uuid
returning id, email, plan, usage_count;
`
